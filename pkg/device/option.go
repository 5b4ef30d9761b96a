package device

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// NameResolution is the well-known name of the scan resolution option.
const NameResolution = "resolution"

// ValueType is the data type of an option.
type ValueType int

const (
	TypeBool ValueType = iota
	TypeInt
	TypeFixed
	TypeString
	TypeButton
	TypeGroup
)

func (t ValueType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFixed:
		return "fixed"
	case TypeString:
		return "string"
	case TypeButton:
		return "button"
	case TypeGroup:
		return "group"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Unit is the physical unit of an option value.
type Unit int

const (
	UnitNone Unit = iota
	UnitPixel
	UnitBit
	UnitMM
	UnitDPI
	UnitPercent
	UnitMicrosecond
)

func (u Unit) String() string {
	switch u {
	case UnitNone:
		return ""
	case UnitPixel:
		return "px"
	case UnitBit:
		return "bit"
	case UnitMM:
		return "mm"
	case UnitDPI:
		return "dpi"
	case UnitPercent:
		return "%"
	case UnitMicrosecond:
		return "us"
	}
	return fmt.Sprintf("unit(%d)", int(u))
}

// Capability is a bit set describing how an option may be used.
type Capability int

const (
	CapSoftSelect Capability = 1 << iota
	CapHardSelect
	CapSoftDetect
	CapEmulated
	CapAutomatic
	CapInactive
	CapAdvanced
)

// Has reports whether all bits of c are set.
func (c Capability) Has(bits Capability) bool {
	return c&bits == bits
}

// ConstraintKind selects which Constraint fields apply.
type ConstraintKind int

const (
	ConstraintNone ConstraintKind = iota
	ConstraintRange
	ConstraintWordList
	ConstraintStringList
)

// Range bounds a word value. Quant of zero means any value in range.
type Range struct {
	Min   int32 `json:"min"`
	Max   int32 `json:"max"`
	Quant int32 `json:"quant"`
}

// Constraint restricts the values an option accepts.
type Constraint struct {
	Kind    ConstraintKind `json:"kind"`
	Range   Range          `json:"range"`
	Words   []int32        `json:"words,omitempty"`
	Strings []string       `json:"strings,omitempty"`
}

// Option describes one device option.
type Option struct {
	Index        int        `json:"index"`
	Name         string     `json:"name"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Type         ValueType  `json:"type"`
	Unit         Unit       `json:"unit"`
	Size         int        `json:"size"`
	Capabilities Capability `json:"capabilities"`
	Constraint   Constraint `json:"constraint"`
}

// Active reports whether the option currently applies.
func (o Option) Active() bool {
	return !o.Capabilities.Has(CapInactive)
}

// Settable reports whether software may set the option.
func (o Option) Settable() bool {
	return o.Active() && o.Capabilities.Has(CapSoftSelect)
}

// Automatic reports whether the device can choose the value itself.
func (o Option) Automatic() bool {
	return o.Capabilities.Has(CapAutomatic)
}

// Check validates v against the option's type, capabilities and constraint.
func (o Option) Check(v Value) error {
	if !o.Settable() {
		return fmt.Errorf("%w: %s", ErrNotSettable, o.Name)
	}
	if v.Type != o.Type {
		return fmt.Errorf("%w: %s expects %s, got %s", ErrConstraint, o.Name, o.Type, v.Type)
	}

	switch o.Type {
	case TypeBool:
		return nil
	case TypeString:
		if o.Size > 0 && len(v.Str)+1 > o.Size {
			return fmt.Errorf("%w: %s accepts at most %d bytes", ErrConstraint, o.Name, o.Size-1)
		}
		if o.Constraint.Kind == ConstraintStringList && !slices.Contains(o.Constraint.Strings, v.Str) {
			return fmt.Errorf("%w: %s must be one of %s", ErrConstraint, o.Name, strings.Join(o.Constraint.Strings, ", "))
		}
		return nil
	case TypeInt, TypeFixed:
		return o.checkWord(v.Word)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, o.Type)
}

func (o Option) checkWord(w int32) error {
	switch o.Constraint.Kind {
	case ConstraintRange:
		r := o.Constraint.Range
		if w < r.Min || w > r.Max {
			return fmt.Errorf("%w: %s outside [%d, %d]", ErrConstraint, o.Name, r.Min, r.Max)
		}
		if r.Quant > 0 && (w-r.Min)%r.Quant != 0 {
			return fmt.Errorf("%w: %s not a multiple of %d from %d", ErrConstraint, o.Name, r.Quant, r.Min)
		}
	case ConstraintWordList:
		if !slices.Contains(o.Constraint.Words, w) {
			return fmt.Errorf("%w: %s not in word list", ErrConstraint, o.Name)
		}
	}
	return nil
}

// Value is an option value tagged with its type.
type Value struct {
	Type ValueType
	Bool bool
	Word int32
	Str  string
}

func BoolValue(b bool) Value {
	return Value{Type: TypeBool, Bool: b}
}

func IntValue(n int32) Value {
	return Value{Type: TypeInt, Word: n}
}

// FixedValue encodes f as a 16.16 fixed point word.
func FixedValue(f float64) Value {
	return Value{Type: TypeFixed, Word: FloatToFixed(f)}
}

func StringValue(s string) Value {
	return Value{Type: TypeString, Str: s}
}

// Fixed returns the word of a fixed value as a float.
func (v Value) Fixed() float64 {
	return FixedToFloat(v.Word)
}

func (v Value) String() string {
	switch v.Type {
	case TypeBool:
		return strconv.FormatBool(v.Bool)
	case TypeInt:
		return strconv.Itoa(int(v.Word))
	case TypeFixed:
		return strconv.FormatFloat(v.Fixed(), 'f', -1, 64)
	case TypeString:
		return v.Str
	}
	return ""
}

// FloatToFixed converts to 16.16 fixed point.
func FloatToFixed(f float64) int32 {
	return int32(math.Round(f * (1 << 16)))
}

// FixedToFloat converts from 16.16 fixed point.
func FixedToFloat(w int32) float64 {
	return float64(w) / (1 << 16)
}

// WordValue builds a value of the option's numeric type from n.
func WordValue(opt Option, n int) (Value, error) {
	switch opt.Type {
	case TypeInt:
		return IntValue(int32(n)), nil
	case TypeFixed:
		return FixedValue(float64(n)), nil
	}
	return Value{}, fmt.Errorf("%w: %s is %s", ErrConstraint, opt.Name, opt.Type)
}

// ParseValue converts raw text into a value of the option's type.
func ParseValue(opt Option, raw string) (Value, error) {
	raw = strings.TrimSpace(raw)

	switch opt.Type {
	case TypeBool:
		b, err := parseBool(raw)
		if err != nil {
			return Value{}, fmt.Errorf("parse %s: %w", opt.Name, err)
		}
		return BoolValue(b), nil
	case TypeInt:
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("parse %s: %w", opt.Name, err)
		}
		return IntValue(int32(n)), nil
	case TypeFixed:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse %s: %w", opt.Name, err)
		}
		if f > math.MaxInt16 || f < math.MinInt16 {
			return Value{}, fmt.Errorf("parse %s: %w: %g out of fixed range", opt.Name, ErrConstraint, f)
		}
		return FixedValue(f), nil
	case TypeString:
		return StringValue(raw), nil
	}
	return Value{}, fmt.Errorf("%w: %s is %s", ErrUnsupportedType, opt.Name, opt.Type)
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(raw)
}

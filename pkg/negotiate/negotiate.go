// Package negotiate configures device options before a scan starts.
//
// Every named option is offered, in order, the requested resolution (for
// the resolution option), a configured override, and the device's automatic
// value. The first step that succeeds wins; a failed step falls through to
// the next. Failures are logged and reported but never abort the scan.
package negotiate

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/JaimeStill/folio/pkg/device"
)

// Setter applies option values. device.Session satisfies it.
type Setter interface {
	SetValue(index int, v device.Value) error
	SetAuto(index int) error
}

// Settings are the values requested for a scan.
type Settings struct {
	// Resolution in dpi; zero leaves the resolution option to the
	// override and automatic steps.
	Resolution int
	// Overrides maps option names to textual values.
	Overrides map[string]string
}

// MergeOverrides layers per-device overrides over common ones.
func MergeOverrides(common, perDevice map[string]string) map[string]string {
	merged := make(map[string]string, len(common)+len(perDevice))
	maps.Copy(merged, common)
	maps.Copy(merged, perDevice)
	return merged
}

// Outcome records what negotiation did with one option.
type Outcome int

const (
	// Untouched options keep the device's current value.
	Untouched Outcome = iota
	// Explicit options were set to a requested value.
	Explicit
	// Automatic options were handed to the device to choose.
	Automatic
	// Skipped options are unnamed or cannot carry a value.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Explicit:
		return "explicit"
	case Automatic:
		return "automatic"
	case Skipped:
		return "skipped"
	}
	return "untouched"
}

// Result is the outcome for one option. Failures holds every step that was
// attempted and failed before the outcome was reached.
type Result struct {
	Index    int
	Name     string
	Outcome  Outcome
	Value    string
	Failures []error
}

// Report collects the results of a negotiation in option order.
type Report struct {
	Results []Result
}

// Find returns the result for the named option.
func (r Report) Find(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// Failed returns the results that recorded at least one failed step.
func (r Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if len(res.Failures) > 0 {
			failed = append(failed, res)
		}
	}
	return failed
}

// Negotiate applies settings to the options of s.
func Negotiate(s Setter, opts []device.Option, settings Settings, logger *slog.Logger) Report {
	report := Report{Results: make([]Result, 0, len(opts))}

	for _, opt := range opts {
		res := Result{Index: opt.Index, Name: opt.Name}

		if opt.Name == "" || opt.Type == device.TypeGroup || opt.Type == device.TypeButton {
			logger.Debug("skip option", "index", opt.Index, "name", opt.Name, "type", opt.Type)
			res.Outcome = Skipped
			report.Results = append(report.Results, res)
			continue
		}

		negotiate(s, opt, settings, logger, &res)
		report.Results = append(report.Results, res)
	}

	return report
}

func negotiate(s Setter, opt device.Option, settings Settings, logger *slog.Logger, res *Result) {
	log := logger.With("option", opt.Name, "index", opt.Index)

	if opt.Name == device.NameResolution && settings.Resolution > 0 {
		v, err := device.WordValue(opt, settings.Resolution)
		if err == nil {
			err = set(s, opt, v)
		}
		if err == nil {
			log.Debug("resolution set", "dpi", settings.Resolution)
			res.Outcome, res.Value = Explicit, v.String()
			return
		}
		log.Warn("failed to set resolution", "dpi", settings.Resolution, "error", err)
		res.Failures = append(res.Failures, err)
	}

	if raw, ok := settings.Overrides[opt.Name]; ok {
		v, err := device.ParseValue(opt, raw)
		if err == nil {
			err = set(s, opt, v)
		}
		if err == nil {
			log.Debug("override set", "value", raw)
			res.Outcome, res.Value = Explicit, v.String()
			return
		}
		log.Warn("failed to set override", "value", raw, "error", err)
		res.Failures = append(res.Failures, err)
	}

	if opt.Automatic() {
		if err := s.SetAuto(opt.Index); err != nil {
			log.Warn("failed to set automatic value", "error", err)
			res.Failures = append(res.Failures, fmt.Errorf("set auto: %w", err))
		} else {
			log.Debug("automatic value set")
			res.Outcome = Automatic
			return
		}
	}

	res.Outcome = Untouched
}

func set(s Setter, opt device.Option, v device.Value) error {
	if err := opt.Check(v); err != nil {
		return err
	}
	if err := s.SetValue(opt.Index, v); err != nil {
		return fmt.Errorf("set %s: %w", opt.Name, err)
	}
	return nil
}

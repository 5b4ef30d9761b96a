package scans

import "github.com/JaimeStill/folio/pkg/openapi"

type spec struct {
	Devices *openapi.Operation
	List    *openapi.Operation
	Start   *openapi.Operation
	Find    *openapi.Operation
	Remove  *openapi.Operation
	Cancel  *openapi.Operation
	Events  *openapi.Operation
	Image   *openapi.Operation
}

var jobID = openapi.PathParam("id", "Scan job ID")

// Spec documents the device and scan job routes.
var Spec = spec{
	Devices: &openapi.Operation{
		Summary: "List reachable scanners",
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSONArray("Devices", "Device"),
			502: openapi.ResponseRef("BadGateway"),
		},
	},
	List: &openapi.Operation{
		Summary: "List retained scan jobs, oldest first",
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSONArray("Jobs", "Job"),
		},
	},
	Start: &openapi.Operation{
		Summary:     "Start a scan",
		Description: "An empty body scans a page with the configured defaults. An omitted quality uses the configured value; 0 is honored. One scan runs per device at a time.",
		RequestBody: openapi.RequestBodyJSON("StartScan", false),
		Responses: map[int]*openapi.Response{
			202: openapi.ResponseJSON("Job started", "Job"),
			400: openapi.ResponseRef("BadRequest"),
			409: openapi.ResponseRef("Conflict"),
			503: openapi.ResponseRef("ServiceUnavailable"),
		},
	},
	Find: &openapi.Operation{
		Summary:    "Find a scan job",
		Parameters: []*openapi.Parameter{jobID},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Job", "Job"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Remove: &openapi.Operation{
		Summary:    "Forget a scan job, cancelling it if running",
		Parameters: []*openapi.Parameter{jobID},
		Responses: map[int]*openapi.Response{
			204: {Description: "Removed"},
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Cancel: &openapi.Operation{
		Summary:    "Request cancellation",
		Parameters: []*openapi.Parameter{jobID},
		Responses: map[int]*openapi.Response{
			202: openapi.ResponseJSON("Cancellation requested", "Job"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Events: &openapi.Operation{
		Summary:     "Stream job events",
		Description: "Upgrades to a websocket carrying one ScanEvent JSON message per event until the terminal event.",
		Parameters:  []*openapi.Parameter{jobID},
		Responses: map[int]*openapi.Response{
			101: {Description: "Switching to websocket"},
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Image: &openapi.Operation{
		Summary:    "Download the scanned page",
		Parameters: []*openapi.Parameter{jobID},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseBinary("JPEG page", "image/jpeg"),
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
}

// Schemas returns the component schemas used by the scan routes.
func (spec) Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Device": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"name":   {Type: "string"},
				"vendor": {Type: "string"},
				"model":  {Type: "string"},
				"type":   {Type: "string"},
			},
		},
		"Job": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":          {Type: "string", Format: "uuid"},
				"device":      {Type: "string"},
				"mode":        {Type: "string", Enum: []any{"page", "preview"}},
				"status":      {Type: "string", Enum: []any{StatusRunning, StatusDone, StatusError, StatusCancelled}},
				"stage":       {Type: "string"},
				"progress":    {Type: "integer"},
				"error":       {Type: "string"},
				"width":       {Type: "integer"},
				"height":      {Type: "integer"},
				"size":        {Type: "integer"},
				"resolution":  {Type: "integer"},
				"quality":     {Type: "integer"},
				"started_at":  {Type: "string", Format: "date-time"},
				"finished_at": {Type: "string", Format: "date-time"},
			},
		},
		"StartScan": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"device":     {Type: "string"},
				"mode":       {Type: "string", Enum: []any{"page", "preview"}, Default: "page"},
				"resolution": {Type: "integer"},
				"quality":    openapi.Integer(0, 100),
				"options":    {Type: "object", Description: "Option overrides keyed by option name"},
			},
		},
		"ScanEvent": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"kind":    {Type: "string", Enum: []any{"prepare", "progress", "stopping", "encoding", "done", "error", "cancelled"}},
				"percent": openapi.Integer(0, 100),
				"width":   {Type: "integer"},
				"height":  {Type: "integer"},
				"size":    {Type: "integer"},
				"error":   {Type: "string"},
			},
		},
	}
}

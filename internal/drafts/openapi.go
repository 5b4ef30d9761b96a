package drafts

import "github.com/JaimeStill/folio/pkg/openapi"

type spec struct {
	List       *openapi.Operation
	Create     *openapi.Operation
	Find       *openapi.Operation
	Discard    *openapi.Operation
	Scan       *openapi.Operation
	Accept     *openapi.Operation
	Forget     *openapi.Operation
	Finalize   *openapi.Operation
	Page       *openapi.Operation
	RemovePage *openapi.Operation
}

var (
	draftID   = openapi.PathParam("id", "Draft ID")
	pageIndex = openapi.IndexParam("index", "Zero-based page index")
)

// Spec documents the draft routes.
var Spec = spec{
	List: &openapi.Operation{
		Summary: "List open drafts",
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSONArray("Drafts", "Draft"),
		},
	},
	Create: &openapi.Operation{
		Summary:     "Open a draft",
		Description: "A zero resolution or omitted quality uses the configured page defaults. Quality 0 is honored. Every page of the draft is scanned with these settings.",
		RequestBody: openapi.RequestBodyJSON("CreateDraft", true),
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Draft", "Draft"),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	Find: &openapi.Operation{
		Summary:    "Find a draft",
		Parameters: []*openapi.Parameter{draftID},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Draft", "Draft"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Discard: &openapi.Operation{
		Summary:    "Discard a draft and its pages",
		Parameters: []*openapi.Parameter{draftID},
		Responses: map[int]*openapi.Response{
			204: {Description: "Discarded"},
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
	Scan: &openapi.Operation{
		Summary:     "Scan the next page",
		Description: "Starts a page scan with the draft's settings. Follow it through the scans routes, then accept or forget it.",
		Parameters:  []*openapi.Parameter{draftID},
		Responses: map[int]*openapi.Response{
			202: openapi.ResponseJSON("Scan started", "Job"),
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
	Accept: &openapi.Operation{
		Summary:    "Append the finished scan to the draft",
		Parameters: []*openapi.Parameter{draftID},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Draft", "Draft"),
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
	Forget: &openapi.Operation{
		Summary:    "Drop the draft's current scan",
		Parameters: []*openapi.Parameter{draftID},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Draft", "Draft"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Finalize: &openapi.Operation{
		Summary:     "Bind the pages into a PDF document",
		Description: "The draft is removed once the document is stored.",
		Parameters:  []*openapi.Parameter{draftID},
		RequestBody: openapi.RequestBodyJSON("FinalizeDraft", false),
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Stored document", "Document"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
	Page: &openapi.Operation{
		Summary:    "Download an accepted page",
		Parameters: []*openapi.Parameter{draftID, pageIndex},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseBinary("JPEG page", "image/jpeg"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	RemovePage: &openapi.Operation{
		Summary:    "Remove an accepted page",
		Parameters: []*openapi.Parameter{draftID, pageIndex},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Draft", "Draft"),
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
}

// Schemas returns the component schemas used by the draft routes.
func (spec) Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Draft": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":         {Type: "string", Format: "uuid"},
				"title":      {Type: "string"},
				"device":     {Type: "string"},
				"resolution": {Type: "integer"},
				"quality":    openapi.Integer(0, 100),
				"options":    {Type: "object"},
				"pages":      {Type: "array", Items: openapi.SchemaRef("DraftPage")},
				"scan":       {Type: "string", Format: "uuid", Description: "Current scan job, if any"},
				"created_at": {Type: "string", Format: "date-time"},
				"updated_at": {Type: "string", Format: "date-time"},
			},
		},
		"DraftPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"index":  openapi.Integer(0, -1),
				"format": {Type: "string"},
				"width":  {Type: "integer"},
				"height": {Type: "integer"},
				"size":   {Type: "integer"},
			},
		},
		"CreateDraft": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"title":      {Type: "string"},
				"device":     {Type: "string"},
				"resolution": {Type: "integer"},
				"quality":    openapi.Integer(0, 100),
				"options":    {Type: "object"},
			},
		},
		"FinalizeDraft": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"filename": {Type: "string", Description: "Defaults to the draft title"},
			},
		},
	}
}

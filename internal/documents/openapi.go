package documents

import "github.com/JaimeStill/folio/pkg/openapi"

type spec struct {
	List     *openapi.Operation
	Find     *openapi.Operation
	Download *openapi.Operation
	Upload   *openapi.Operation
	Search   *openapi.Operation
	Delete   *openapi.Operation
}

// Spec documents the document routes.
var Spec = spec{
	List: &openapi.Operation{
		Summary: "List documents",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("search", "string", "Search title and filename", false),
			openapi.QueryParam("sort", "string", "Sort fields, - prefix for descending", false),
			openapi.QueryParam("title", "string", "Title contains", false),
			openapi.QueryParam("filename", "string", "Filename contains", false),
			openapi.QueryParam("source", "string", "scan or upload", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Page of documents", "DocumentPage"),
		},
	},
	Find: &openapi.Operation{
		Summary:    "Find a document",
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "Document ID")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Document", "Document"),
			400: openapi.ResponseRef("BadRequest"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Download: &openapi.Operation{
		Summary:    "Download the PDF",
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "Document ID")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseBinary("PDF content", ContentType),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Upload: &openapi.Operation{
		Summary: "Upload a PDF",
		RequestBody: &openapi.RequestBody{
			Required: true,
			Content: map[string]*openapi.MediaType{
				"multipart/form-data": {
					Schema: &openapi.Schema{
						Type: "object",
						Properties: map[string]*openapi.Schema{
							"file":  {Type: "string", Format: "binary"},
							"title": {Type: "string"},
						},
						Required: []string{"file"},
					},
				},
			},
		},
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Stored document", "Document"),
			400: openapi.ResponseRef("BadRequest"),
			413: {Description: "File exceeds the upload limit"},
			422: openapi.ResponseRef("UnprocessableEntity"),
		},
	},
	Search: &openapi.Operation{
		Summary:     "Search documents",
		RequestBody: openapi.RequestBodyJSON("DocumentSearch", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Page of documents", "DocumentPage"),
			400: openapi.ResponseRef("BadRequest"),
		},
	},
	Delete: &openapi.Operation{
		Summary:    "Delete a document and its content",
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "Document ID")},
		Responses: map[int]*openapi.Response{
			204: {Description: "Deleted"},
			404: openapi.ResponseRef("NotFound"),
		},
	},
}

// Schemas returns the component schemas used by the document routes.
func (spec) Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Document": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":           {Type: "string", Format: "uuid"},
				"title":        {Type: "string"},
				"filename":     {Type: "string"},
				"content_type": {Type: "string", Example: ContentType},
				"size_bytes":   {Type: "integer"},
				"page_count":   openapi.Integer(1, -1),
				"dpi":          {Type: "integer", Description: "Scan resolution, null for uploads"},
				"source":       {Type: "string", Enum: []any{SourceScan, SourceUpload}},
				"storage_key":  {Type: "string"},
				"created_at":   {Type: "string", Format: "date-time"},
			},
		},
		"DocumentPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("Document")},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
		"DocumentSearch": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"page":      {Type: "integer"},
				"page_size": {Type: "integer"},
				"search":    {Type: "string"},
				"sort":      {Type: "string"},
				"title":     {Type: "string"},
				"filename":  {Type: "string"},
				"source":    {Type: "string"},
			},
		},
	}
}

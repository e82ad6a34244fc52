package grapherror

// Category represents the main error category for graph view operations
type Category string

const (
	// CategoryFetch indicates snapshot fetch errors (network, non-2xx)
	CategoryFetch Category = "fetch"

	// CategoryStream indicates live-stream connection/communication errors
	CategoryStream Category = "stream"

	// CategoryDecode indicates wire decoding errors (malformed frames)
	CategoryDecode Category = "decode"

	// CategoryLayout indicates layout computation errors
	CategoryLayout Category = "layout"

	// CategoryExport indicates export/render errors
	CategoryExport Category = "export"

	// CategoryInternal indicates internal engine errors
	CategoryInternal Category = "internal"
)

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// Fetch subcategories
const (
	// SubcategoryFetchNetwork indicates the request never reached the server
	SubcategoryFetchNetwork = "network"

	// SubcategoryFetchStatus indicates a non-2xx response
	SubcategoryFetchStatus = "status"

	// SubcategoryFetchDecode indicates an unreadable response body
	SubcategoryFetchDecode = "decode"
)

// Stream subcategories
const (
	// SubcategoryStreamDial indicates the WebSocket dial failed
	SubcategoryStreamDial = "dial"

	// SubcategoryStreamRead indicates a read failure on the stream
	SubcategoryStreamRead = "read"

	// SubcategoryStreamClosed indicates the peer closed the stream
	SubcategoryStreamClosed = "closed"
)

// Decode subcategories
const (
	// SubcategoryDecodeFrame indicates a frame that is not valid JSON
	SubcategoryDecodeFrame = "frame"

	// SubcategoryDecodeShape indicates a frame matching no known message shape
	SubcategoryDecodeShape = "shape"
)

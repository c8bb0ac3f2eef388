package docchat

// Request carries one user query and the optional document it refers to.
//
// DocumentID names a stored document; Context carries that document's
// extracted text once it has been resolved. ConversationID groups requests
// so that the relay can refuse concurrent sessions on one conversation.
type Request struct {
	Query          string
	DocumentID     string
	Context        string
	ConversationID string
}

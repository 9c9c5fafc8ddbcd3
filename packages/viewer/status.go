package viewer

// StatusClass is the colour class of a settled response.
type StatusClass string

const (
	ClassInformational StatusClass = "informational"
	ClassSuccess       StatusClass = "success"
	ClassRedirection   StatusClass = "redirection"
	ClassClientError   StatusClass = "client-error"
	ClassServerError   StatusClass = "server-error"
	ClassError         StatusClass = "error"
)

// Classify maps an HTTP status to its class. Zero means no status was received.
func Classify(status int) StatusClass {
	switch {
	case status >= 100 && status < 200:
		return ClassInformational
	case status >= 200 && status < 300:
		return ClassSuccess
	case status >= 300 && status < 400:
		return ClassRedirection
	case status >= 400 && status < 500:
		return ClassClientError
	case status >= 500 && status < 600:
		return ClassServerError
	default:
		return ClassError
	}
}

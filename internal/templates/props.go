package templates

// ErrorPageProps contains properties for the error page
type ErrorPageProps struct {
	Title     string
	Message   string
	Status    int
	ReturnURL string // optional "try again" link, already sanitized
}

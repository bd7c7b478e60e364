package resend

// SendEmailRequest тело запроса POST /emails.
type SendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// SendEmailResponse ответ на успешную отправку.
type SendEmailResponse struct {
	ID string `json:"id"`
}

// errorResponse тело ответа с ошибкой.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

package http

// statusLine maps a status code to its full status-line token. Unknown codes
// default to 200 OK.
func statusLine(code int) string {
	switch code {
	case 200:
		return "200 OK"
	case 201:
		return "201 Created"
	case 204:
		return "204 No Content"
	case 304:
		return "304 Not Modified"
	case 400:
		return "400 Bad Request"
	case 401:
		return "401 Unauthorized"
	case 402:
		return "402 Payment Required"
	case 403:
		return "403 Forbidden"
	case 404:
		return "404 Not Found"
	case 409:
		return "409 Conflict"
	case 415:
		return "415 Unsupported Media Type"
	case 429:
		return "429 Too Many Requests"
	case 500:
		return "500 Internal Server Error"
	default:
		return "200 OK"
	}
}

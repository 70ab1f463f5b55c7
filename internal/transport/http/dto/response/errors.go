package response

var (
	ErrInvalidRequestFormat = ErrorResponse{
		Status:  "error",
		Error:   "invalid_request",
		Details: "Invalid request format",
	}

	ErrAuthenticationRequired = ErrorResponse{
		Status:  "error",
		Error:   "authentication_required",
		Details: "Log in to perform this action",
	}

	ErrInvalidToken = ErrorResponse{
		Status: "error",
		Error:  "invalid_token",
	}

	ErrForbidden = ErrorResponse{
		Status:  "error",
		Error:   "forbidden",
		Details: "Permission denied",
	}

	ErrGalleryLocked = ErrorResponse{
		Status:  "error",
		Error:   "gallery_locked",
		Details: "This gallery is password protected",
	}

	ErrInternal = ErrorResponse{
		Status:  "error",
		Error:   "internal_error",
		Details: "Internal server error",
	}
)

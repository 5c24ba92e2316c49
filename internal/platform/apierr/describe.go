package apierr

import "errors"

// Describe renders err as the message an end user sees. action is a verb
// phrase such as "view reports" or "save this review".
func Describe(err error, action string) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	switch CodeOf(err) {
	case CodePermissionDenied:
		return "You do not have permission to " + action + "."
	case CodeUnauthenticated:
		return "You must be signed in to " + action + "."
	case CodeNotFound:
		return "The requested document was not found."
	case CodeUnavailable:
		return "The data store is currently unavailable. Please try again later."
	case CodeInternal:
		return "An internal error occurred. Please try again."
	case CodeInvalidArgument, CodeFailedPrecondition:
		return err.Error()
	case CodeUploadCanceled:
		return "Image upload was canceled."
	case CodeUploadUnauthorized:
		return "You are not authorized to upload images."
	case CodeBucketNotFound:
		return "Storage bucket not found."
	case CodeUploadUnknown:
		return "Image upload failed: " + err.Error()
	default:
		return "Failed to " + action + ": " + err.Error()
	}
}

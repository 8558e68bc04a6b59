package invoice

import "github.com/invoicepilot/backend/internal/common"

// ShouldStartProcessing is the guard for the document-created event. Any
// status other than uploaded (or a set skip flag) makes the event a no-op so
// duplicate deliveries and retries are harmless.
func ShouldStartProcessing(status Status, skipProcessing bool) bool {
	return status == StatusUploaded && !skipProcessing
}

// CheckReprocess validates an explicit reprocess request. Violations are
// typed errors, surfaced synchronously to the caller.
func CheckReprocess(rec *Record, callerUID string) error {
	if callerUID == "" {
		return common.Unauthenticated("caller identity required")
	}
	if rec.UserID != callerUID {
		return common.PermissionDenied("invoice %s does not belong to caller", rec.ID)
	}
	if rec.Status == StatusFinalized {
		return common.FailedPrecondition("invoice %s is finalized", rec.ID)
	}
	if rec.StoragePath == "" {
		return common.FailedPrecondition("invoice %s has no stored document", rec.ID)
	}
	return nil
}

// CheckFinalize validates the user finalize action. Finalized is terminal;
// nothing transitions out of it.
func CheckFinalize(rec *Record, callerUID string) error {
	if callerUID == "" {
		return common.Unauthenticated("caller identity required")
	}
	if rec.UserID != callerUID {
		return common.PermissionDenied("invoice %s does not belong to caller", rec.ID)
	}
	if rec.Status == StatusFinalized {
		return common.FailedPrecondition("invoice %s is already finalized", rec.ID)
	}
	return nil
}

// CheckEdit validates a review edit of extracted fields.
func CheckEdit(rec *Record, callerUID string) error {
	if callerUID == "" {
		return common.Unauthenticated("caller identity required")
	}
	if rec.UserID != callerUID {
		return common.PermissionDenied("invoice %s does not belong to caller", rec.ID)
	}
	if rec.Status == StatusFinalized {
		return common.FailedPrecondition("invoice %s is finalized", rec.ID)
	}
	return nil
}

// CheckDelete validates a delete request. Deletion is allowed in any state
// but only for the owner.
func CheckDelete(rec *Record, callerUID string) error {
	if callerUID == "" {
		return common.Unauthenticated("caller identity required")
	}
	if rec.UserID != callerUID {
		return common.PermissionDenied("invoice %s does not belong to caller", rec.ID)
	}
	return nil
}

// ReprocessableStatuses are the stored states an explicit reprocess may
// transition to processing from. Finalized is the only exclusion; a reprocess
// racing a running extraction simply restarts it.
func ReprocessableStatuses() []Status {
	return []Status{StatusUploaded, StatusProcessing, StatusNeedsReview, StatusError}
}

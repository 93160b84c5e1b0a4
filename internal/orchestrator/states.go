package orchestrator

// SubmissionState tracks the submission workflow.
type SubmissionState string

const (
	SubmissionIdle       SubmissionState = "idle"
	SubmissionEncrypting SubmissionState = "encrypting"
	SubmissionSubmitting SubmissionState = "submitting"
	SubmissionConfirming SubmissionState = "confirming"
	SubmissionDone       SubmissionState = "done"
	SubmissionFailed     SubmissionState = "failed"
)

// VerificationState tracks the verification workflow.
type VerificationState string

const (
	VerificationIdle            VerificationState = "idle"
	VerificationCheckingStatus  VerificationState = "checking_status"
	VerificationAlreadyVerified VerificationState = "already_verified"
	VerificationRequesting      VerificationState = "requesting_decryption"
	VerificationAwaitingProof   VerificationState = "awaiting_proof"
	VerificationReconciling     VerificationState = "reconciling"
	VerificationDone            VerificationState = "done"
	VerificationFailed          VerificationState = "failed"
)

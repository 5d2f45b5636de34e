package fraud

// Case is one fraud case in the reference bank. Field names follow the
// shared-data JSON document consumed by the IVR deployment.
type Case struct {
	UserName            string `json:"userName"`
	Status              string `json:"case"`
	SecurityQuestion    string `json:"securityQuestion"`
	SecurityAnswer      string `json:"securityAnswer"`
	CardEnding          string `json:"cardEnding"`
	TransactionAmount   string `json:"transactionAmount"`
	TransactionName     string `json:"transactionName"`
	TransactionSource   string `json:"transactionSource"`
	TransactionTime     string `json:"transactionTime"`
	Location            string `json:"location"`
	TransactionCategory string `json:"transactionCategory"`
	Outcome             string `json:"outcome,omitempty"`
}

// Case status values.
const (
	StatusPendingReview      = "pending_review"
	StatusVerificationFailed = "verification_failed"
	StatusConfirmedSafe      = "confirmed_safe"
	StatusConfirmedFraud     = "confirmed_fraud"
)

// caseBank is the on-disk case document.
type caseBank struct {
	FraudCases []Case `json:"fraud_cases"`
}

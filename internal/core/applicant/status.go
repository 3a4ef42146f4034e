package applicant

// Operation は審査ワークフローの操作です。
type Operation string

const (
	OpSubmit  Operation = "submit"
	OpApprove Operation = "approve"
	OpReject  Operation = "reject"
	OpReopen  Operation = "reopen"
)

type transitionKey struct {
	from VerificationStatus
	op   Operation
}

// transitions は (現在状態, 操作) から遷移先への表です。ここにない組み合わせは不正です。
var transitions = map[transitionKey]VerificationStatus{
	{from: StatusDraft, op: OpSubmit}:      StatusSubmitted,
	{from: StatusSubmitted, op: OpApprove}: StatusAccepted,
	{from: StatusSubmitted, op: OpReject}:  StatusRejected,
	{from: StatusRejected, op: OpReopen}:   StatusDraft,
}

// requiredSource は操作ごとに許可される遷移元です。エラーメッセージに使用します。
var requiredSource = map[Operation]VerificationStatus{
	OpSubmit:  StatusDraft,
	OpApprove: StatusSubmitted,
	OpReject:  StatusSubmitted,
	OpReopen:  StatusRejected,
}

// NextStatus は遷移表に従って次の状態を返します。許可されない場合は *StateError を返します。
func NextStatus(current VerificationStatus, op Operation) (VerificationStatus, error) {
	next, ok := transitions[transitionKey{from: current, op: op}]
	if !ok {
		return "", &StateError{Operation: op, Current: current, Expected: requiredSource[op]}
	}
	return next, nil
}

// CanTransition は遷移が許可されているかを判定します。
func CanTransition(current VerificationStatus, op Operation) bool {
	_, ok := transitions[transitionKey{from: current, op: op}]
	return ok
}

// leavesSubmitted は審査結果 (verified_by / verified_at) を記録する操作かを判定します。
func leavesSubmitted(op Operation) bool {
	return op == OpApprove || op == OpReject
}

package tx

import (
	"errors"
	"regexp"
	"strings"
)

// ErrUserRejected is returned when the signer declines a transaction.
var ErrUserRejected = errors.New("user rejected the request")

// RevertError is a coded precondition failure raised by the ledger.
type RevertError struct {
	Name string
}

func (e *RevertError) Error() string { return "execution reverted: custom error " + e.Name + "()" }

// revertMessages maps ledger error names to plain-language explanations.
var revertMessages = map[string]string{
	"InvalidReward":          "Reward must be at least 1 USDC",
	"InvalidDeadline":        "Deadline must be in the future",
	"TaskNotOpen":            "Task is not open for claiming",
	"TaskNotSubmitted":       "Task has not been submitted yet",
	"TaskNotClaimed":         "Task has not been claimed yet",
	"TaskNotDisputed":        "Task is not in dispute",
	"NotTaskCreator":         "Only the task creator can do this",
	"NotTaskAssignee":        "Only the assigned worker can do this",
	"CannotClaimOwnTask":     "You cannot claim your own task",
	"DeadlinePassed":         "The deadline has passed",
	"AlreadyRegisteredJuror": "You are already registered as a juror",
	"NotRegisteredJuror":     "You are not a registered juror",
	"InsufficientJurors":     "Not enough jurors in the pool",
	"JurorIsParty":           "Jurors cannot be involved in the task",
	"AlreadyVoted":           "You have already voted on this dispute",
	"DisputeAlreadyResolved": "This dispute has already been resolved",
	"ChildTasksIncomplete":   "All sub-tasks must be completed first",
	"ParentRewardExceeded":   "Sub-task rewards exceed parent reward",
}

var customErrorPattern = regexp.MustCompile(`error (\w+)\(\)`)

const maxMessageLen = 120

// UserMessage maps a write failure to the message shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return "Unknown error"
	}

	var rev *RevertError
	if errors.As(err, &rev) {
		return revertMessage(rev.Name)
	}
	if errors.Is(err, ErrUserRejected) {
		return "Transaction rejected"
	}

	msg := err.Error()
	if m := customErrorPattern.FindStringSubmatch(msg); m != nil {
		return revertMessage(m[1])
	}
	if strings.Contains(msg, "User rejected") {
		return "Transaction rejected"
	}
	if strings.Contains(msg, "insufficient funds") {
		return "Insufficient funds"
	}
	if len(msg) > maxMessageLen {
		return msg[:maxMessageLen] + "..."
	}
	return msg
}

// IsLedgerRejection reports whether err is a coded ledger failure.
func IsLedgerRejection(err error) bool {
	var rev *RevertError
	return errors.As(err, &rev) || (err != nil && customErrorPattern.MatchString(err.Error()))
}

func revertMessage(name string) string {
	if m, ok := revertMessages[name]; ok {
		return m
	}
	return name
}

package lifecycle

// SubOpStatus tracks a secondary pass on a clip, such as a smart crop.
type SubOpStatus string

const (
	SubOpNotStarted SubOpStatus = "not_started"
	SubOpPending    SubOpStatus = "pending"
	SubOpProcessing SubOpStatus = "processing"
	SubOpDone       SubOpStatus = "done"
	SubOpFailed     SubOpStatus = "failed"
)

type SubOpEvent string

const (
	// SubOpRequested re-triggers are no-ops once the operation is queued, running or done.
	SubOpRequested SubOpEvent = "requested"
	// SubOpRerun is used by repeatable operations (export) that may run again after done.
	SubOpRerun       SubOpEvent = "rerun"
	SubOpStarted     SubOpEvent = "started"
	SubOpSucceeded   SubOpEvent = "succeeded"
	SubOpFailedEvent SubOpEvent = "failed"
)

var SubOps = newMachine("sub_operation",
	[]SubOpStatus{SubOpNotStarted, SubOpPending, SubOpProcessing, SubOpDone, SubOpFailed},
	[]SubOpStatus{SubOpDone, SubOpFailed},
	SubOpFailedEvent, SubOpFailed,
	[]edge[SubOpStatus, SubOpEvent]{
		{SubOpNotStarted, SubOpRequested, SubOpPending},
		{SubOpFailed, SubOpRequested, SubOpPending},
		{SubOpPending, SubOpRequested, SubOpPending},
		{SubOpProcessing, SubOpRequested, SubOpProcessing},
		{SubOpDone, SubOpRequested, SubOpDone},

		{SubOpNotStarted, SubOpRerun, SubOpPending},
		{SubOpDone, SubOpRerun, SubOpPending},
		{SubOpFailed, SubOpRerun, SubOpPending},
		{SubOpPending, SubOpRerun, SubOpPending},
		{SubOpProcessing, SubOpRerun, SubOpProcessing},

		{SubOpPending, SubOpStarted, SubOpProcessing},
		{SubOpProcessing, SubOpStarted, SubOpProcessing},
		{SubOpProcessing, SubOpSucceeded, SubOpDone},
	},
)

// HasResult reports whether a sub-operation in s holds a reusable result.
func HasResult(s SubOpStatus) bool { return s == SubOpDone }

// InFlight reports whether a sub-operation in s is queued or running.
func InFlight(s SubOpStatus) bool { return s == SubOpPending || s == SubOpProcessing }

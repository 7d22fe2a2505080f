package lifecycle

type ClipStatus string

const (
	ClipDetected   ClipStatus = "detected"
	ClipGenerating ClipStatus = "generating"
	ClipReady      ClipStatus = "ready"
	ClipExported   ClipStatus = "exported"
	ClipFailed     ClipStatus = "failed"
)

type ClipEvent string

const (
	ClipGenerate    ClipEvent = "generate"
	ClipGenerated   ClipEvent = "generated"
	ClipExport      ClipEvent = "exported"
	ClipFailedEvent ClipEvent = "failed"
)

// Clips: ready and exported are terminal for generation. Export stays repeatable
// on both of them and never moves a clip back to failed.
var Clips = newMachine("clip",
	[]ClipStatus{ClipDetected, ClipGenerating, ClipReady, ClipExported, ClipFailed},
	[]ClipStatus{ClipReady, ClipExported, ClipFailed},
	ClipFailedEvent, ClipFailed,
	[]edge[ClipStatus, ClipEvent]{
		{ClipDetected, ClipGenerate, ClipGenerating},
		{ClipGenerating, ClipGenerate, ClipGenerating},
		{ClipGenerating, ClipGenerated, ClipReady},
		{ClipReady, ClipExport, ClipExported},
		{ClipExported, ClipExport, ClipExported},
	},
)

// Exportable reports whether an export may be requested for a clip in s.
func Exportable(s ClipStatus) bool { return Clips.Can(s, ClipExport) }

// RequireFinished rejects sub-operations on a clip whose media is not rendered yet.
func RequireFinished(s ClipStatus, operation string) error {
	if Exportable(s) {
		return nil
	}
	return &TransitionError{Machine: Clips.Name(), From: string(s), Event: operation}
}

package satel

// FrameClass is the dispatcher's three-way verdict on an inbound frame.
type FrameClass int

const (
	// ClassDirectResponse answers the in-flight command.
	ClassDirectResponse FrameClass = iota
	// ClassSpontaneousPush is an unsolicited state update.
	ClassSpontaneousPush
	// ClassUnexpected matches neither the in-flight command nor a
	// pushable status code. Logged and dropped.
	ClassUnexpected
)

// String names the class for logs.
func (c FrameClass) String() string {
	switch c {
	case ClassDirectResponse:
		return "direct_response"
	case ClassSpontaneousPush:
		return "spontaneous_push"
	default:
		return "unexpected"
	}
}

// pushable reports whether the panel may emit this code unsolicited.
// Only the monitored bitmap state codes qualify; temperature and device
// info replies arrive solicited only, and result frames always answer a
// command.
func pushable(code Code) bool {
	switch code {
	case CodeZoneTemp, CodeDeviceInfo, CodeResult:
		return false
	}
	_, ok := codeToKind[code]
	return ok
}

// classify decides what an inbound frame is. expected is the response
// code the in-flight command awaits, or 0 with awaiting=false when the
// engine is idle.
//
// An awaited code always claims the frame, even when the code would
// otherwise be pushable: the panel replies to a monitored-code read
// with the same frame shape it pushes. Everything else is a push if its
// code is monitorable, unexpected otherwise.
func classify(code Code, expected Code, awaiting bool) FrameClass {
	if awaiting && code == expected {
		return ClassDirectResponse
	}
	if pushable(code) {
		return ClassSpontaneousPush
	}
	return ClassUnexpected
}

package backend

// legacyMonitorFatalVersion is the dex file format version at and after
// which a monitor-exit stack-unlock mismatch was downgraded from a fatal VM
// abort to a thrown IllegalMonitorStateException. Dex files older than this
// keep the original's fatal behavior, preserved verbatim at the verifier
// interface boundary per SPEC_FULL.md §12.5.
const legacyMonitorFatalVersion = 37

// monitorUnlockMismatchFatal reports whether method's dex file predates
// legacyMonitorFatalVersion and therefore still treats a monitor-exit
// stack-unlock mismatch as fatal. Called only from the OpMonitorExit
// lowering case in lower.go; nothing else in this CORE consults it, since
// deciding what the runtime's unlock helper actually does with the result
// is out of scope (SPEC_FULL.md §1).
func monitorUnlockMismatchFatal(dexFileVersion int) bool {
	return dexFileVersion < legacyMonitorFatalVersion
}

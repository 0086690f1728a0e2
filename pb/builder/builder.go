package builder

// Builder states reported by Status.
const (
	StateIdle     = "IDLE"
	StateBuilding = "BUILDING"
	StateWaiting  = "WAITING"
	StateAborting = "ABORTING"
)

// Build results reported by a WAITING builder.
const (
	ResultOK          = "OK"
	ResultPackageFail = "PACKAGEFAIL"
	ResultDepFail     = "DEPFAIL"
	ResultChrootFail  = "CHROOTFAIL"
	ResultBuilderFail = "BUILDERFAIL"
	ResultGivenBack   = "GIVENBACK"
	ResultAborted     = "ABORTED"
)

// LogFilename is the name under which the build log of the current job can
// be retrieved.
const LogFilename = "buildlog"

// ControlFilename is the name of an optional result file holding one Debian
// control paragraph (Package, Version, Architecture, Depends, Section,
// Priority, Description) per produced binary package.
const ControlFilename = "binaries.control"

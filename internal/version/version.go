package version

// PackageName is the name of this tool.
var PackageName = "tt-reset"

// Version is the released version, injected at build time.
var Version = "undefined"

// CommitHash is the git hash the build came from.
var CommitHash = "undefined"

// BuildDate is the date of the build.
var BuildDate = "undefined"

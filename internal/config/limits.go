package config

const (
	// MinCDRsReports and MaxCDRsReports bound the saved reports a CDRs
	// comparison accepts after duplicate ids are removed.
	MinCDRsReports = 2
	MaxCDRsReports = 5

	// MaxRequestBodyBytes caps the grok route body. Four base64 images at the
	// default 4 MiB ceiling plus prompt text fit comfortably.
	MaxRequestBodyBytes = 32 << 20

	// MaxUpstreamBodyBytes caps how much of a JSON upstream reply is read.
	MaxUpstreamBodyBytes = 8 << 20

	// UpstreamSnippetBytes is how much of an unexpected upstream body is
	// echoed back in UPSTREAM_BAD_RESPONSE details.
	UpstreamSnippetBytes = 200

	// MaxProfileNameLength fits saved report names in a text column with a
	// sensible UI limit.
	MaxProfileNameLength = 255

	// MaxFolderNameLength matches profile names.
	MaxFolderNameLength = 255
)

package validation

// String length limits for auth inputs.
const (
	MaxEmailLength      = 255
	MaxDeviceInfoLength = 200
)

// Password limits are in bytes. bcrypt ignores everything past the 72nd byte.
const (
	MinPasswordBytes = 6
	MaxPasswordBytes = 72
)

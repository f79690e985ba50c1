package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// DefaultCheckTimeout bounds a single executor run before it is recorded as an error.
	DefaultCheckTimeout = 15 * time.Second
	// DefaultStepTimeout bounds each network profile resolution step.
	DefaultStepTimeout = 10 * time.Second
	// TLSSoonExpiryWindow warns operators when a certificate expires inside this window.
	TLSSoonExpiryWindow = 14 * 24 * time.Hour
)

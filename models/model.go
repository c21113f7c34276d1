package models

// Credentials holds what is needed to open an FTP session.
type Credentials struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// DeployConfig describes a single deployment. Domain, StageDir and LocalDir
// always end with a slash.
type DeployConfig struct {
	Domain      string
	StageDir    string
	LocalDir    string
	SkipHidden  bool
	Credentials Credentials
}

// StagePath is the remote staging directory.
func (c DeployConfig) StagePath() string {
	return c.Domain + c.StageDir
}

// FileEntry is one local filesystem node scheduled for upload.
type FileEntry struct {
	LocalPath  string
	IsDir      bool
	RemotePath string
}

// RemoteEntry is a single item of a remote directory listing.
type RemoteEntry struct {
	Name  string
	IsDir bool
}

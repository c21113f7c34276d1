package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ftp_deploy/internal/ftpclient"
	"ftp_deploy/internal/logging"
	"ftp_deploy/models"
)

const (
	DefaultStage = "html.stage/"
	DefaultLocal = "public/"
)

// ConfigError reports a missing or invalid setting, named after its flag.
type ConfigError struct {
	Flag string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("`%s` not provided", e.Flag)
	}
	return fmt.Sprintf("invalid `%s`: %v", e.Flag, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Environment holds FTPS secrets that may come from the environment instead
// of the command line.
type Environment struct {
	FTPSKeyPassword string
	FTPSCertPath    string
}

// LoadEnvironment reads FTPS_KEY_PASSWORD and FTPS_CERT_PATH. Both are
// optional.
func LoadEnvironment(getenv func(string) string) Environment {
	if getenv == nil {
		getenv = os.Getenv
	}
	return Environment{
		FTPSKeyPassword: getenv("FTPS_KEY_PASSWORD"),
		FTPSCertPath:    getenv("FTPS_CERT_PATH"),
	}
}

// Config is everything one run needs.
type Config struct {
	Deploy models.DeployConfig
	FTP    ftpclient.Options
	Log    logging.Config
}

// File is the layout of the optional YAML config file.
type File struct {
	Domain     string `yaml:"domain"`
	Stage      string `yaml:"stage"`
	Local      string `yaml:"local"`
	SkipHidden bool   `yaml:"skip_hidden"`
	FTP        struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		TLS          string        `yaml:"tls"`
		Cert         string        `yaml:"cert"`
		CertPassword string        `yaml:"cert_password"`
		Insecure     bool          `yaml:"insecure"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"ftp"`
	Log logging.Config `yaml:"log"`
}

// LoadFile decodes a YAML config file. Unknown keys are rejected.
func LoadFile(path string) (File, error) {
	var f File
	fh, err := os.Open(path)
	if err != nil {
		return f, err
	}
	defer fh.Close()

	dec := yaml.NewDecoder(fh)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return f, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// EnsureTrailingSlash appends "/" unless s already ends with one.
func EnsureTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

// Parse builds a Config from command line arguments (without the program
// name). Values from --config are used for every flag not given on the
// command line. Nothing touches the network.
func Parse(args []string, env Environment, output io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("ftp-deploy", flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}

	var file File
	fs.StringVar(&file.Domain, "domain", "", "remote base directory (required)")
	fs.StringVar(&file.FTP.Host, "host", "", "FTP host (required)")
	fs.StringVar(&file.FTP.User, "user", "", "FTP user name (required)")
	fs.StringVar(&file.FTP.Password, "pw", "", "FTP password (required)")
	fs.StringVar(&file.Stage, "stage", "html.stage", "staging directory under domain")
	fs.StringVar(&file.Local, "local", "public", "local site directory")
	fs.IntVar(&file.FTP.Port, "port", 0, "FTP port (default 21, 990 for implicit TLS)")
	fs.DurationVar(&file.FTP.Timeout, "timeout", ftpclient.DefaultTimeout, "dial timeout")
	fs.BoolVar(&file.SkipHidden, "skip-hidden", false, "do not upload files and directories starting with a dot")
	fs.StringVar(&file.FTP.TLS, "tls", "none", "FTPS mode: none, explicit or implicit")
	fs.StringVar(&file.FTP.Cert, "cert", "", "PFX client certificate (default $FTPS_CERT_PATH)")
	fs.StringVar(&file.FTP.CertPassword, "cert-pass", "", "PFX password (default $FTPS_KEY_PASSWORD)")
	fs.BoolVar(&file.FTP.Insecure, "insecure", false, "skip verification of the server certificate")
	fs.StringVar(&file.Log.Level, "log-level", "info", "debug, info, warn or error")
	fs.StringVar(&file.Log.Format, "log-format", "console", "console or json")
	configPath := fs.String("config", "", "YAML file with default values for these flags")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, &ConfigError{Flag: fs.Arg(0), Err: errors.New("unexpected argument")}
	}

	if *configPath != "" {
		fromFile, err := LoadFile(*configPath)
		if err != nil {
			return nil, &ConfigError{Flag: "config", Err: err}
		}
		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
		file = merge(fromFile, file, set)
	}

	for _, req := range []struct{ flag, value string }{
		{"domain", file.Domain},
		{"host", file.FTP.Host},
		{"user", file.FTP.User},
		{"pw", file.FTP.Password},
	} {
		if req.value == "" {
			return nil, &ConfigError{Flag: req.flag}
		}
	}

	mode, err := ftpclient.ParseTLSMode(file.FTP.TLS)
	if err != nil {
		return nil, &ConfigError{Flag: "tls", Err: err}
	}
	if file.FTP.Port < 0 || file.FTP.Port > 65535 {
		return nil, &ConfigError{Flag: "port", Err: fmt.Errorf("%d out of range", file.FTP.Port)}
	}
	if file.FTP.Cert == "" {
		file.FTP.Cert = env.FTPSCertPath
	}
	if file.FTP.CertPassword == "" {
		file.FTP.CertPassword = env.FTPSKeyPassword
	}
	if file.FTP.Cert != "" && mode == ftpclient.TLSNone {
		return nil, &ConfigError{Flag: "cert", Err: errors.New("a client certificate needs --tls explicit or implicit")}
	}

	stage, local := file.Stage, file.Local
	if stage == "" {
		stage = DefaultStage
	}
	if local == "" {
		local = DefaultLocal
	}

	return &Config{
		Deploy: models.DeployConfig{
			Domain:     EnsureTrailingSlash(file.Domain),
			StageDir:   EnsureTrailingSlash(stage),
			LocalDir:   EnsureTrailingSlash(local),
			SkipHidden: file.SkipHidden,
			Credentials: models.Credentials{
				Host:     file.FTP.Host,
				Port:     file.FTP.Port,
				User:     file.FTP.User,
				Password: file.FTP.Password,
			},
		},
		FTP: ftpclient.Options{
			Timeout:            file.FTP.Timeout,
			TLS:                mode,
			CertPath:           file.FTP.Cert,
			CertPassword:       file.FTP.CertPassword,
			InsecureSkipVerify: file.FTP.Insecure,
		},
		Log: file.Log,
	}, nil
}

// merge starts from the file values and overlays every flag in set.
func merge(base, flags File, set map[string]bool) File {
	pick := func(name string, dst *string, v string) {
		if set[name] {
			*dst = v
		}
	}
	pick("domain", &base.Domain, flags.Domain)
	pick("stage", &base.Stage, flags.Stage)
	pick("local", &base.Local, flags.Local)
	pick("host", &base.FTP.Host, flags.FTP.Host)
	pick("user", &base.FTP.User, flags.FTP.User)
	pick("pw", &base.FTP.Password, flags.FTP.Password)
	pick("tls", &base.FTP.TLS, flags.FTP.TLS)
	pick("cert", &base.FTP.Cert, flags.FTP.Cert)
	pick("cert-pass", &base.FTP.CertPassword, flags.FTP.CertPassword)
	pick("log-level", &base.Log.Level, flags.Log.Level)
	pick("log-format", &base.Log.Format, flags.Log.Format)

	if set["port"] {
		base.FTP.Port = flags.FTP.Port
	}
	if set["timeout"] || base.FTP.Timeout == 0 {
		base.FTP.Timeout = flags.FTP.Timeout
	}
	if set["skip-hidden"] {
		base.SkipHidden = flags.SkipHidden
	}
	if set["insecure"] {
		base.FTP.Insecure = flags.FTP.Insecure
	}
	if base.Log.Level == "" {
		base.Log.Level = flags.Log.Level
	}
	if base.Log.Format == "" {
		base.Log.Format = flags.Log.Format
	}
	if base.FTP.TLS == "" {
		base.FTP.TLS = flags.FTP.TLS
	}
	return base
}

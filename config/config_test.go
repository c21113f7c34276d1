package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftp_deploy/internal/ftpclient"
	"ftp_deploy/models"
)

// Both --name=value and --name value forms are used on purpose.

func parse(args ...string) (*Config, error) {
	return Parse(args, Environment{}, io.Discard)
}

func TestMissingRequiredFlag(t *testing.T) {
	tests := []struct {
		missing string
		args    []string
	}{
		{"domain", []string{"--host=hi", "--user", "hi", "--pw=hi"}},
		{"host", []string{"--domain", "hi", "--user=hi", "--pw=hi"}},
		{"user", []string{"--pw", "hi", "--domain=hi", "--host=hi"}},
		{"pw", []string{"--user", "hi", "--host=hi", "--domain=hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.missing, func(t *testing.T) {
			_, err := parse(tt.args...)

			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.missing, cerr.Flag)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestRequiredArgsParsedOptionalDefaulted(t *testing.T) {
	cfg, err := parse("--user", "_user", "--host=_host", "--domain=_domain", "--pw=_pw")
	require.NoError(t, err)

	assert.Equal(t, models.DeployConfig{
		Domain:   "_domain/",
		StageDir: "html.stage/",
		LocalDir: "public/",
		Credentials: models.Credentials{
			Host:     "_host",
			User:     "_user",
			Password: "_pw",
		},
	}, cfg.Deploy)
	assert.Equal(t, ftpclient.TLSNone, cfg.FTP.TLS)
	assert.Equal(t, ftpclient.DefaultTimeout, cfg.FTP.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestAllArgsParsed(t *testing.T) {
	cfg, err := parse(
		"--stage=_stage",
		"--user", "_user",
		"--host=_host",
		"--domain=_domain",
		"--pw=_pw",
		"--local", "_local/",
		"--port=2121",
		"--skip-hidden",
		"--timeout", "5s",
	)
	require.NoError(t, err)

	assert.Equal(t, models.DeployConfig{
		Domain:     "_domain/",
		StageDir:   "_stage/",
		LocalDir:   "_local/",
		SkipHidden: true,
		Credentials: models.Credentials{
			Host:     "_host",
			Port:     2121,
			User:     "_user",
			Password: "_pw",
		},
	}, cfg.Deploy)
	assert.Equal(t, 5*time.Second, cfg.FTP.Timeout)
}

func TestEnsureTrailingSlash(t *testing.T) {
	assert.Equal(t, "test/", EnsureTrailingSlash("test"))
	assert.Equal(t, "test/", EnsureTrailingSlash("test/"))
	assert.Equal(t, EnsureTrailingSlash("x"), EnsureTrailingSlash(EnsureTrailingSlash("x")))
}

func TestInvalidValues(t *testing.T) {
	base := []string{"--domain=d", "--host=h", "--user=u", "--pw=p"}

	_, err := parse(append(base, "--tls=ssl")...)
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "tls", cerr.Flag)

	_, err = parse(append(base, "--port=70000")...)
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "port", cerr.Flag)

	_, err = parse(append(base, "--cert=client.pfx")...)
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "cert", cerr.Flag)

	_, err = parse(append(base, "extra")...)
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "extra", cerr.Flag)
}

func TestHelp(t *testing.T) {
	_, err := parse("-h")
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestEnvironmentSuppliesCertificate(t *testing.T) {
	env := LoadEnvironment(func(key string) string {
		return map[string]string{
			"FTPS_CERT_PATH":    "/etc/ftp/client.pfx",
			"FTPS_KEY_PASSWORD": "secret",
		}[key]
	})

	cfg, err := Parse([]string{"--domain=d", "--host=h", "--user=u", "--pw=p", "--tls=implicit"}, env, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, ftpclient.TLSImplicit, cfg.FTP.TLS)
	assert.Equal(t, "/etc/ftp/client.pfx", cfg.FTP.CertPath)
	assert.Equal(t, "secret", cfg.FTP.CertPassword)

	cfg, err = Parse([]string{"--domain=d", "--host=h", "--user=u", "--pw=p", "--tls=explicit", "--cert=mine.pfx"}, env, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "mine.pfx", cfg.FTP.CertPath)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestConfigFile(t *testing.T) {
	path := writeConfig(t, `
domain: www/example.com
local: dist
skip_hidden: true
ftp:
  host: ftp.example.com
  port: 2121
  user: deploy
  password: from-file
  tls: explicit
  insecure: true
  timeout: 10s
log:
  level: debug
`)

	cfg, err := parse("--config", path, "--pw=from-flag", "--local=site")
	require.NoError(t, err)

	assert.Equal(t, models.DeployConfig{
		Domain:     "www/example.com/",
		StageDir:   "html.stage/",
		LocalDir:   "site/",
		SkipHidden: true,
		Credentials: models.Credentials{
			Host:     "ftp.example.com",
			Port:     2121,
			User:     "deploy",
			Password: "from-flag",
		},
	}, cfg.Deploy)
	assert.Equal(t, ftpclient.TLSExplicit, cfg.FTP.TLS)
	assert.True(t, cfg.FTP.InsecureSkipVerify)
	assert.Equal(t, 10*time.Second, cfg.FTP.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestConfigFileStillNeedsRequiredValues(t *testing.T) {
	path := writeConfig(t, "domain: www\nftp:\n  host: h\n  user: u\n")

	_, err := parse("--config=" + path)
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "pw", cerr.Flag)
}

func TestConfigFileErrors(t *testing.T) {
	_, err := parse("--config", filepath.Join(t.TempDir(), "missing.yaml"))
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "config", cerr.Flag)
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := writeConfig(t, "domian: typo\n")
	_, err = parse("--config", path)
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "config", cerr.Flag)
}

// Package ftpclient implements the deploy transport on top of
// github.com/jlaffaye/ftp, with optional explicit or implicit FTPS.
package ftpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"go.uber.org/zap"

	"ftp_deploy/internal/deploy"
	"ftp_deploy/models"
)

const (
	DefaultPort         = 21
	DefaultImplicitPort = 990
	DefaultTimeout      = 60 * time.Second
)

// Options configures how the client dials.
type Options struct {
	Timeout            time.Duration
	TLS                TLSMode
	CertPath           string
	CertPassword       string
	InsecureSkipVerify bool
	SessionCache       tls.ClientSessionCache
}

// serverConn is the subset of *ftp.ServerConn the client uses.
type serverConn interface {
	Login(user, password string) error
	Type(transferType ftp.TransferType) error
	CurrentDir() (string, error)
	ChangeDir(path string) error
	MakeDir(path string) error
	RemoveDir(path string) error
	RemoveDirRecur(path string) error
	List(path string) ([]*ftp.Entry, error)
	Stor(path string, r io.Reader) error
	Rename(from, to string) error
	Quit() error
}

type dialFunc func(addr string, options ...ftp.DialOption) (serverConn, error)

func dialFTP(addr string, options ...ftp.DialOption) (serverConn, error) {
	return ftp.Dial(addr, options...)
}

// Client is a single FTP session. It is not safe for concurrent use.
type Client struct {
	opts Options
	log  *zap.Logger
	dial dialFunc

	conn serverConn
	home string
}

var _ deploy.Transport = (*Client)(nil)

// New returns a disconnected client.
func New(opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.TLS == "" {
		opts.TLS = TLSNone
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{opts: opts, log: logger, dial: dialFTP}
}

// Connect dials, logs in and switches to binary mode.
func (c *Client) Connect(ctx context.Context, creds models.Credentials) (string, error) {
	if c.conn != nil {
		return "", errors.New("already connected")
	}

	port := creds.Port
	if port == 0 {
		port = DefaultPort
		if c.opts.TLS == TLSImplicit {
			port = DefaultImplicitPort
		}
	}
	addr := net.JoinHostPort(creds.Host, strconv.Itoa(port))

	dialOpts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(c.opts.Timeout),
	}
	if c.opts.TLS != TLSNone {
		tlsConfig, err := c.tlsConfig(creds.Host)
		if err != nil {
			return "", err
		}
		if c.opts.TLS == TLSImplicit {
			dialOpts = append(dialOpts, ftp.DialWithTLS(tlsConfig))
		} else {
			dialOpts = append(dialOpts, ftp.DialWithExplicitTLS(tlsConfig))
		}
	}

	c.log.Debug("dialing", zap.String("addr", addr), zap.String("tls", string(c.opts.TLS)))
	conn, err := c.dial(addr, dialOpts...)
	if err != nil {
		return "", fmt.Errorf("connecting to FTP server %s: %w", addr, err)
	}

	if err := conn.Login(creds.User, creds.Password); err != nil {
		if qerr := conn.Quit(); qerr != nil {
			c.log.Debug("closing after failed login", zap.Error(qerr))
		}
		return "", fmt.Errorf("FTP authentication failed for user %s: %w", creds.User, err)
	}

	if err := conn.Type(ftp.TransferTypeBinary); err != nil {
		c.log.Warn("failed to set binary mode", zap.Error(err))
	}

	home, err := conn.CurrentDir()
	if err != nil {
		c.log.Debug("PWD failed", zap.Error(err))
	}

	c.conn = conn
	c.home = home
	return fmt.Sprintf("logged in to %s as %s", addr, creds.User), nil
}

// Remove deletes path. With recursive set the whole subtree goes.
func (c *Client) Remove(path string, recursive bool) error {
	if err := c.ready(); err != nil {
		return err
	}
	if !recursive {
		return classify(c.conn.RemoveDir(path))
	}

	err := c.conn.RemoveDirRecur(path)
	// RemoveDirRecur changes directory while it walks and may leave the
	// session anywhere; relative paths of later calls depend on home.
	if c.home != "" {
		if cerr := c.conn.ChangeDir(c.home); cerr != nil && err == nil {
			err = cerr
		}
	}
	return classify(err)
}

// MakeDir creates a single remote directory.
func (c *Client) MakeDir(path string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return classify(c.conn.MakeDir(path))
}

// List returns the entries directly under path, without . and ..
func (c *Client) List(path string) ([]models.RemoteEntry, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	entries, err := c.conn.List(path)
	if err != nil {
		return nil, classify(err)
	}

	out := make([]models.RemoteEntry, 0, len(entries))
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		out = append(out, models.RemoteEntry{
			Name:  e.Name,
			IsDir: e.Type == ftp.EntryTypeFolder,
		})
	}
	return out, nil
}

// Put uploads the local file to remotePath.
func (c *Client) Put(localPath, remotePath string) error {
	if err := c.ready(); err != nil {
		return err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	return classify(c.conn.Stor(remotePath, f))
}

// Rename moves from to to on the server.
func (c *Client) Rename(from, to string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return classify(c.conn.Rename(from, to))
}

// Disconnect sends QUIT. The client is considered disconnected afterwards
// even if QUIT fails.
func (c *Client) Disconnect() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Quit()
	c.conn = nil
	c.home = ""
	if err != nil {
		return fmt.Errorf("closing FTP connection: %w", err)
	}
	return nil
}

// Connected reports whether a session is open.
func (c *Client) Connected() bool {
	return c.conn != nil
}

func (c *Client) ready() error {
	if c.conn == nil {
		return errors.New("not connected")
	}
	return nil
}

// classify marks "file unavailable" replies about missing paths with
// deploy.ErrNotFound. 550 is also used for permission problems, so the
// reply text decides.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var reply *textproto.Error
	if errors.As(err, &reply) && reply.Code == ftp.StatusFileUnavailable && missingPath(reply.Msg) {
		return fmt.Errorf("%w: %w", deploy.ErrNotFound, err)
	}
	return err
}

func missingPath(msg string) bool {
	msg = strings.ToLower(msg)
	for _, s := range []string{"no such file or directory", "not found", "does not exist", "doesn't exist"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

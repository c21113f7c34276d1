// Package deploy runs the stage, upload, backup and promote sequence against
// a remote FTP host.
package deploy

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"ftp_deploy/internal/backup"
	"ftp_deploy/internal/manifest"
	"ftp_deploy/models"
)

// Transport is the set of remote operations a deploy needs. Implementations
// return an error wrapping ErrNotFound when a path does not exist.
type Transport interface {
	Connect(ctx context.Context, creds models.Credentials) (string, error)
	Remove(path string, recursive bool) error
	MakeDir(path string) error
	List(path string) ([]models.RemoteEntry, error)
	Put(localPath, remotePath string) error
	Rename(from, to string) error
	Disconnect() error
	Connected() bool
}

// Report summarizes a finished run.
type Report struct {
	// State is StateDisconnected on success and StateFailed otherwise.
	State State
	// FailedAt is the last state reached before the failure.
	FailedAt State
	// Backup is the name the previous live directory was moved to.
	Backup string
	// BackupSkipped is set when there was no live directory to move.
	BackupSkipped bool
	Uploaded      int
}

// Deployer owns the transport for the duration of one run.
type Deployer struct {
	cfg       models.DeployConfig
	transport Transport
	log       *zap.Logger
	state     State
}

// New returns a Deployer for cfg. A nil logger discards output.
func New(cfg models.DeployConfig, t Transport, logger *zap.Logger) *Deployer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deployer{
		cfg:       cfg,
		transport: t,
		log:       logger,
		state:     StateIdle,
	}
}

// State returns the step the deployer last completed.
func (d *Deployer) State() State {
	return d.state
}

// Run executes the whole sequence. The connection is closed before Run
// returns, whatever step stopped it; a close error never hides an earlier
// failure.
func (d *Deployer) Run(ctx context.Context) (rep Report, err error) {
	defer func() {
		if err != nil {
			rep.FailedAt = d.state
			d.state = StateFailed
		}
		if derr := d.disconnect(); derr != nil {
			if err == nil {
				err = derr
				rep.FailedAt = d.state
				d.state = StateFailed
			}
		} else if err == nil {
			d.state = StateDisconnected
		}
		rep.State = d.state
	}()

	stage := trimSlash(d.cfg.StagePath())
	live := d.cfg.Domain + backup.LiveDir

	msg, err := d.transport.Connect(ctx, d.cfg.Credentials)
	if err != nil {
		return rep, &ConnectionError{Host: d.cfg.Credentials.Host, Err: err}
	}
	d.advance(StateConnected)
	d.log.Info("connected", zap.String("server", msg))

	if err := d.transport.Remove(stage, true); err != nil {
		if !IsNotFound(err) {
			return rep, &RemoteOperationError{Op: "remove", Path: stage, Err: err}
		}
		d.log.Info("staging directory does not exist, skipping removal", zap.String("path", stage))
	} else {
		d.log.Info("removed staging directory", zap.String("path", stage))
	}
	d.advance(StateStagingCleared)

	if err := d.transport.MakeDir(stage); err != nil {
		return rep, &RemoteOperationError{Op: "mkdir", Path: stage, Err: err}
	}
	d.advance(StateStagingCreated)

	entries, err := manifest.Build(d.cfg.LocalDir, stage, manifest.Options{SkipHidden: d.cfg.SkipHidden})
	if err != nil {
		return rep, err
	}
	d.advance(StateManifestBuilt)
	d.log.Info("manifest built", zap.String("local", d.cfg.LocalDir), zap.Int("entries", len(entries)))

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if err := d.upload(e); err != nil {
			return rep, err
		}
		rep.Uploaded++
	}
	d.advance(StateUploaded)
	d.log.Info("upload complete", zap.Int("entries", rep.Uploaded))

	listing, err := d.transport.List(trimSlash(d.cfg.Domain))
	if err != nil {
		return rep, &RemoteOperationError{Op: "list", Path: d.cfg.Domain, Err: err}
	}
	rep.Backup = backup.NextName(listing)
	d.advance(StateBackupNamed)

	backedUp := false
	if backup.Exists(listing, backup.LiveDir) {
		target := d.cfg.Domain + rep.Backup
		d.log.Info("renaming live directory", zap.String("from", live), zap.String("to", target))
		if err := d.transport.Rename(live, target); err != nil {
			return rep, &RemoteOperationError{Op: "rename", Path: live, Err: err}
		}
		backedUp = true
	} else {
		rep.BackupSkipped = true
		d.log.Warn("no live directory found, skipping backup", zap.String("path", live))
	}
	d.advance(StateLiveBackedUp)

	d.log.Info("promoting staging directory", zap.String("from", stage), zap.String("to", live))
	if err := d.transport.Rename(stage, live); err != nil {
		if backedUp {
			lerr := &LiveMissingError{Live: live, Backup: d.cfg.Domain + rep.Backup, Err: err}
			d.log.Error("promotion failed after backup", zap.Error(lerr))
			return rep, lerr
		}
		return rep, &RemoteOperationError{Op: "rename", Path: stage, Err: err}
	}
	d.advance(StateStagePromoted)
	d.log.Info("deploy complete", zap.String("live", live), zap.String("backup", rep.Backup))

	return rep, nil
}

func (d *Deployer) upload(e models.FileEntry) error {
	if e.IsDir {
		d.log.Debug("mkdir", zap.String("remote", e.RemotePath))
		if err := d.transport.MakeDir(e.RemotePath); err != nil {
			return &RemoteOperationError{Op: "mkdir", Path: e.RemotePath, Err: err}
		}
		return nil
	}
	d.log.Debug("uploading", zap.String("local", e.LocalPath), zap.String("remote", e.RemotePath))
	if err := d.transport.Put(e.LocalPath, e.RemotePath); err != nil {
		return &RemoteOperationError{Op: "put", Path: e.RemotePath, Err: err}
	}
	return nil
}

// disconnect closes the session if one is open.
func (d *Deployer) disconnect() error {
	if !d.transport.Connected() {
		return nil
	}
	if err := d.transport.Disconnect(); err != nil {
		d.log.Warn("disconnect failed", zap.Error(err))
		return &RemoteOperationError{Op: "disconnect", Path: d.cfg.Credentials.Host, Err: err}
	}
	return nil
}

func (d *Deployer) advance(s State) {
	d.state = s
	d.log.Debug("state", zap.Stringer("state", s))
}

func trimSlash(p string) string {
	if len(p) > 1 {
		return strings.TrimSuffix(p, "/")
	}
	return p
}

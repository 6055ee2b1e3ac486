// Package cli is the interactive destination console: create, inspect,
// test and deploy to a podcast's configured destination.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/castship/castship/internal/common"
	"github.com/castship/castship/internal/destinations"
	"github.com/castship/castship/internal/logging"
	"github.com/castship/castship/internal/service"
)

type App struct {
	svc    *service.DestinationService
	log    logging.Logger
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(svc *service.DestinationService, log logging.Logger) *App {
	return &App{svc: svc, log: log, reader: bufio.NewReader(os.Stdin), out: os.Stdout}
}

func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "castship destination console (type 'help' for commands)")
	runREPL(ctx, a, bufio.NewScanner(os.Stdin), a.out)
}

func (a *App) Create(ctx context.Context) error {
	podcastID, err := GetSimpleText(a.reader, "Podcast id", a.out)
	if err != nil {
		return err
	}
	modeStr, err := GetSimpleText(a.reader, "Mode (s3, ftp, sftp, webdav, ipfs, smb)", a.out)
	if err != nil {
		return err
	}
	mode, err := destinations.ParseMode(modeStr)
	if err != nil {
		return err
	}
	publicBaseURL, err := GetSimpleText(a.reader, "Public base URL (empty for none)", a.out)
	if err != nil {
		return err
	}
	fields, err := GetFields(a.reader, a.out)
	if err != nil {
		return err
	}
	if err := a.promptSecret(mode, fields); err != nil {
		return err
	}

	d, err := a.svc.Create(ctx, podcastID, mode, publicBaseURL, fields)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created destination %s (%s)\n", d.ID, d.Mode)
	return nil
}

// promptSecret asks for the password without echo when the mode uses one
// and the operator did not type it as a field.
func (a *App) promptSecret(mode destinations.Mode, fields map[string]any) error {
	switch mode {
	case destinations.ModeS3, destinations.ModeIPFS:
		return nil
	}
	if _, ok := fields["password"]; ok {
		return nil
	}
	if _, ok := fields["private_key"]; ok {
		return nil
	}
	pw, err := GetPassword("Password (empty to skip)", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	if len(pw) > 0 {
		fields["password"] = string(pw)
	}
	return nil
}

func (a *App) Show(ctx context.Context) error {
	id, err := GetSimpleText(a.reader, "Destination id", a.out)
	if err != nil {
		return err
	}
	d, err := a.svc.Get(ctx, id)
	if err != nil {
		return err
	}

	// Connection secrets stay inside the blob; only addressing data is shown.
	fmt.Fprintf(a.out, "id:         %s\n", d.ID)
	fmt.Fprintf(a.out, "podcast:    %s\n", d.PodcastID)
	fmt.Fprintf(a.out, "mode:       %s\n", d.Mode)
	fmt.Fprintf(a.out, "public url: %s\n", d.PublicBaseURL)
	fmt.Fprintf(a.out, "updated:    %s\n", d.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func (a *App) Update(ctx context.Context) error {
	id, err := GetSimpleText(a.reader, "Destination id", a.out)
	if err != nil {
		return err
	}
	newMode, err := GetSimpleText(a.reader, "New mode (empty to keep)", a.out)
	if err != nil {
		return err
	}
	publicBaseURL, err := GetSimpleText(a.reader, "Public base URL (empty to keep)", a.out)
	if err != nil {
		return err
	}
	fields, err := GetFields(a.reader, a.out)
	if err != nil {
		return err
	}

	d, err := a.svc.Update(ctx, id, newMode, publicBaseURL, fields)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "updated destination %s (%s)\n", d.ID, d.Mode)
	return nil
}

func (a *App) Test(ctx context.Context) error {
	id, err := GetSimpleText(a.reader, "Destination id", a.out)
	if err != nil {
		return err
	}
	if err := a.svc.Test(ctx, id); err != nil {
		fmt.Fprintf(a.out, "FAILED: %v\n", err)
		return nil
	}
	fmt.Fprintln(a.out, "OK")
	return nil
}

func (a *App) Deploy(ctx context.Context) error {
	podcastID, err := GetSimpleText(a.reader, "Podcast id", a.out)
	if err != nil {
		return err
	}
	manifestPath, err := GetSimpleText(a.reader, "Manifest path", a.out)
	if err != nil {
		return err
	}

	d, err := a.svc.GetByPodcast(ctx, podcastID)
	if err != nil {
		return err
	}
	in, err := LoadManifest(manifestPath, d.PublicBaseURL)
	if err != nil {
		return err
	}

	res := a.svc.Deploy(ctx, podcastID, in)
	if res.Failed() {
		fmt.Fprintln(a.out, "deploy FAILED")
	}
	fmt.Fprintf(a.out, "uploaded: %d, skipped: %d\n", res.Uploaded, res.Skipped)
	if res.PublicURL != "" {
		fmt.Fprintf(a.out, "public url: %s\n", res.PublicURL)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(a.out, "error: %s\n", e)
	}
	return nil
}

func (a *App) Delete(ctx context.Context) error {
	id, err := GetSimpleText(a.reader, "Destination id", a.out)
	if err != nil {
		return err
	}
	confirm, err := GetSimpleText(a.reader, fmt.Sprintf("Delete destination %s? (yes/no)", id), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(confirm, "yes") {
		fmt.Fprintln(a.out, "cancelled")
		return nil
	}
	if err := a.svc.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "deleted")
	return nil
}

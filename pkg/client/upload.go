package client

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cmintegration/cmclient/pkg/uri"
)

// openFile is swapped in tests to observe the file handle.
var openFile = os.Open

// UploadFile streams the file at filePath into the Files media entity keyed
// by (transportID, base name of filePath, applicationID). The server must
// answer 204 No Content.
func (c *Client) UploadFile(ctx context.Context, transportID, filePath, applicationID string) error {
	const op = "upload_file"

	if strings.TrimSpace(transportID) == "" {
		return invalidArgument("TransportID is blank: %q", transportID)
	}
	if strings.TrimSpace(filePath) == "" {
		return invalidArgument("file path is blank")
	}
	if strings.TrimSpace(applicationID) == "" {
		return invalidArgument("ApplicationID is blank: %q", applicationID)
	}

	f, err := openFile(filePath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrIO, filePath, err)
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", ErrIO, filePath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrIO, filePath)
	}

	name := filepath.Base(filePath)
	key := c.uris.CompositeKey(
		uri.P("TransportID", transportID),
		uri.P("FileID", name),
		uri.P("ApplicationID", applicationID),
	)
	target := c.uris.Entity(setFiles, c.uris.Escape(key))

	token, err := c.fetchCSRFToken(ctx)
	if err != nil {
		return fmt.Errorf("fetch CSRF token: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, target, f)
	if err != nil {
		return err
	}
	req.ContentLength = info.Size()
	req.Header.Set(headerCSRFToken, token)
	req.Header.Set("Accept", contentTypeAtom)
	if mt := mime.TypeByExtension(filepath.Ext(name)); mt != "" {
		req.Header.Set("Content-Type", mt)
	}

	resp, err := c.send(req, op)
	if err != nil {
		return err
	}
	defer release(resp)

	return expect(resp, op, http.StatusNoContent)
}

//go:build integration

package steps

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/nguyentantai21042004/vidscribe/internal/signedurl"
)

const forbiddenBody = `{"error":"forbidden"}`

// InitializePublicMediaScenario registers the signed media route steps.
func InitializePublicMediaScenario(ctx *godog.ScenarioContext) {
	ctx.Step(`^a published artifact$`, aPublishedArtifact)
	ctx.Step(`^I fetch the artifact with its signed link$`, iFetchWithSignedLink)
	ctx.Step(`^I fetch the artifact with (a tampered signature|an expired link|no signature|a missing file)$`, iFetchWithVariant)
	ctx.Step(`^the response content type is "([^"]*)"$`, theResponseContentTypeIs)
	ctx.Step(`^the response body is the generic forbidden body$`, theResponseBodyIsForbidden)
}

func aPublishedArtifact(ctx context.Context) error {
	w := getWorld(ctx)
	src := filepath.Join(w.dir, "published.wav")
	if err := os.WriteFile(src, []byte("RIFF0000WAVEfmt "), 0o644); err != nil {
		return err
	}
	a, err := w.store.Import(ctx, src)
	if err != nil {
		return err
	}
	w.artifact = a
	return nil
}

func signedRequestURI(codec *signedurl.Codec, fileID string) (string, error) {
	raw, _, err := codec.Mint(fileID, time.Hour)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	return u.RequestURI(), nil
}

func iFetchWithSignedLink(ctx context.Context) error {
	w := getWorld(ctx)
	uri, err := signedRequestURI(w.codec, w.artifact.ID)
	if err != nil {
		return err
	}
	return w.request(http.MethodGet, uri, nil)
}

func iFetchWithVariant(ctx context.Context, variant string) error {
	w := getWorld(ctx)
	path := signedurl.PathPrefix + w.artifact.ID

	var target string
	switch variant {
	case "a tampered signature":
		exp := time.Now().Add(time.Hour).Unix()
		q := url.Values{"expires": {strconv.FormatInt(exp, 10)}, "sign": {strings.Repeat("0", 64)}}
		target = path + "?" + q.Encode()
	case "an expired link":
		exp := time.Now().Add(-time.Hour).Unix()
		q := url.Values{"expires": {strconv.FormatInt(exp, 10)}, "sign": {w.codec.Sign(w.artifact.ID, exp)}}
		target = path + "?" + q.Encode()
	case "no signature":
		target = path
	case "a missing file":
		uri, err := signedRequestURI(w.codec, strings.Repeat("f", 32)+".wav")
		if err != nil {
			return err
		}
		target = uri
	default:
		return fmt.Errorf("unknown variant %q", variant)
	}
	return w.request(http.MethodGet, target, nil)
}

func theResponseContentTypeIs(ctx context.Context, want string) error {
	if got := getWorld(ctx).header.Get("Content-Type"); got != want {
		return fmt.Errorf("expected content type %q, got %q", want, got)
	}
	return nil
}

func theResponseBodyIsForbidden(ctx context.Context) error {
	if got := string(getWorld(ctx).body); got != forbiddenBody {
		return fmt.Errorf("expected %s, got %s", forbiddenBody, got)
	}
	return nil
}

package report

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/paperpilot/internal/profile"
	"github.com/hyperifyio/paperpilot/internal/scan"
)

// Collect runs the caption and citation scans over the same snapshot
// concurrently and bundles them. kinds limits the scans; none means both.
// A configuration error for one kind is recorded in Scan.Errors next to that
// kind's zero-issue result and the other kind still runs. Only context
// cancellation is returned as an error.
func Collect(ctx context.Context, s *scan.Scanner, document string, paragraphs []scan.Paragraph, p *profile.Profile, kinds ...scan.Kind) (Scan, error) {
	if s == nil {
		s = scan.New()
	}
	out := Scan{Document: document, GeneratedAt: time.Now().UTC()}
	if p != nil {
		out.ProfileID, out.ProfileName = p.ID, p.Name
	}

	want := func(k scan.Kind) bool {
		if len(kinds) == 0 {
			return true
		}
		for _, x := range kinds {
			if x == k {
				return true
			}
		}
		return false
	}

	var caps, cits scan.Result
	var capErr error
	g, gctx := errgroup.WithContext(ctx)
	if want(scan.KindCaption) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			caps, capErr = s.CaptionsForProfile(paragraphs, p)
			out.Captions = &caps
			return nil
		})
	}
	if want(scan.KindCitation) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cits = s.CitationsForProfile(paragraphs, p)
			out.Citations = &cits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Scan{}, err
	}

	if capErr != nil {
		var ce *scan.ConfigError
		if !errors.As(capErr, &ce) {
			return Scan{}, capErr
		}
		out.Errors = map[scan.Kind]string{scan.KindCaption: ce.Error()}
	}
	return out, nil
}

package location

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
)

var ErrNoFix = errors.New("no location fix supplied")

// Static returns a fixed sample, stamped with the time of the call when
// the sample has no timestamp.
type Static struct {
	Sample *attendance.LocationSample
	Now    func() time.Time
}

func (s Static) Current(ctx context.Context) (attendance.LocationSample, error) {
	if err := ctx.Err(); err != nil {
		return attendance.LocationSample{}, err
	}
	if s.Sample == nil {
		return attendance.LocationSample{}, ErrNoFix
	}
	sample := *s.Sample
	if sample.Timestamp.IsZero() {
		now := time.Now
		if s.Now != nil {
			now = s.Now
		}
		sample.Timestamp = now()
	}
	return sample, nil
}

// FixedGate answers with a state reported by the caller. PromptAnswer is the
// outcome of the re-prompt the caller already showed; nil means declined.
type FixedGate struct {
	State        attendance.PermissionState
	PromptAnswer *bool
}

func (g FixedGate) Check(ctx context.Context) (attendance.PermissionState, error) {
	if g.State == "" {
		return attendance.PermissionGranted, nil
	}
	return g.State, nil
}

func (g FixedGate) Prompt(ctx context.Context) (bool, error) {
	return g.PromptAnswer != nil && *g.PromptAnswer, nil
}

// TerminalGate asks on a terminal when permission is not already granted.
type TerminalGate struct {
	State attendance.PermissionState
	In    io.Reader
	Out   io.Writer
}

func (g TerminalGate) Check(ctx context.Context) (attendance.PermissionState, error) {
	if g.State == "" {
		return attendance.PermissionGranted, nil
	}
	return g.State, nil
}

func (g TerminalGate) Prompt(ctx context.Context) (bool, error) {
	fmt.Fprint(g.Out, "Location access is needed to record attendance. Allow? [y/N]: ")

	answer := make(chan string, 1)
	errc := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(g.In).ReadString('\n')
		if err != nil && line == "" {
			errc <- err
			return
		}
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errc:
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}

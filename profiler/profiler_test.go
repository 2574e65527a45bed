package profiler

import (
	"strings"
	"testing"
	"time"
)

func TestProfilerRecordsTimings(t *testing.T) {
	p := New()

	p.Start("render")
	p.Start("accumulate")
	time.Sleep(2 * time.Millisecond)
	p.Stop("accumulate")
	p.Stop("render")

	// Stopping an unknown tag is ignored
	p.Stop("unknown")

	if p.Elapsed("render") < 2*time.Millisecond {
		t.Fatalf("expected render time to be at least 2ms; got %s", p.Elapsed("render"))
	}
	if p.Elapsed("render") < p.Elapsed("accumulate") {
		t.Fatalf("expected enclosing tag to take longer than the nested one")
	}
	if p.Elapsed("unknown") != 0 {
		t.Fatalf("expected unknown tag to report 0; got %s", p.Elapsed("unknown"))
	}

	expTags := []string{"render", "accumulate"}
	tags := p.Tags()
	if len(tags) != len(expTags) {
		t.Fatalf("expected tags %v; got %v", expTags, tags)
	}
	for index, tag := range expTags {
		if tags[index] != tag {
			t.Fatalf("expected tag %d to be %q; got %q", index, tag, tags[index])
		}
	}

	// Restarting keeps the original order
	p.Start("render")
	p.Stop("render")
	if tags = p.Tags(); tags[0] != "render" || len(tags) != 2 {
		t.Fatalf("expected restarted tag to keep its position; got %v", tags)
	}

	table := p.Table()
	for _, tag := range expTags {
		if !strings.Contains(table, tag) {
			t.Fatalf("expected table to contain %q:\n%s", tag, table)
		}
	}
}

func TestPendingTagsAreNotReported(t *testing.T) {
	p := New()
	p.Start("pending")

	if tags := p.Tags(); len(tags) != 0 {
		t.Fatalf("expected no reported tags; got %v", tags)
	}
}

func TestNopObserver(t *testing.T) {
	var obs Observer = Nop
	obs.Start("a")
	obs.Stop("a")
}

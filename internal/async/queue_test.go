package async

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
	"github.com/joseph-ayodele/deliverynotes/internal/pipeline"
)

type recordingProc struct {
	mu    sync.Mutex
	names []string
}

func (p *recordingProc) ProcessOne(_ context.Context, doc entity.SourceDocument) pipeline.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names = append(p.names, doc.Name)
	if len(p.names) == 2 {
		return pipeline.Result{Name: doc.Name, Status: constants.StatusSkipped}
	}
	return pipeline.Result{Name: doc.Name, Status: constants.StatusProcessed, Record: &entity.DeliveryRecord{}}
}

func writeNotes(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	var out []string
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte(n), 0o600); err != nil {
			t.Fatal(err)
		}
		out = append(out, p)
	}
	return out
}

func TestProcessorQueue_InOrder(t *testing.T) {
	proc := &recordingProc{}
	q := NewProcessorQueue(context.Background(), proc, nil, WithQueueSize(1))

	for _, p := range writeNotes(t, "a.pdf", "b.png", "c.jpg") {
		if err := q.Enqueue(context.Background(), Job{Path: p}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	want := []string{"a.pdf", "b.png", "c.jpg"}
	if len(proc.names) != len(want) {
		t.Fatalf("processed %v", proc.names)
	}
	for i := range want {
		if proc.names[i] != want[i] {
			t.Errorf("order = %v, want %v", proc.names, want)
			break
		}
	}
	sum := q.Summary()
	if sum.Processed != 2 || sum.Skipped != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestProcessorQueue_DropsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	proc := &recordingProc{}
	q := NewProcessorQueue(ctx, proc, nil)
	cancel()

	paths := writeNotes(t, "a.pdf")
	_ = q.Enqueue(context.Background(), Job{Path: paths[0]})
	q.Shutdown(context.Background())

	if len(proc.names) != 0 {
		t.Errorf("processed %v after cancel", proc.names)
	}
}

func TestProcessorQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(context.Background(), &recordingProc{}, nil)
	q.Shutdown(context.Background())
	if err := q.Enqueue(context.Background(), Job{Path: "x.pdf"}); err != nil {
		t.Errorf("Enqueue after shutdown = %v, want nil", err)
	}
}

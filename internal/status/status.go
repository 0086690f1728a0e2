// Package status serves the published archives together with a status page
// about builders and the build queue, and the Prometheus metrics.
package status

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/distr1/soyuz/internal/store"
	"github.com/lpar/gzipped/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

type builderStatus struct {
	*store.Builder
	// Current is the queue entry the builder is working on, if any.
	Current *store.QueueEntry
}

type page struct {
	Now        time.Time
	Builders   []builderStatus
	Queue      map[string]int
	Archs      []string
	Candidates []*store.Candidate
	FreeBytes  uint64
	DiskErr    string
}

var statusTmpl = template.Must(template.New("status").Funcs(template.FuncMap{
	"bytes": humanBytes,
}).Parse(`<!DOCTYPE html>
<html>
<head><title>soyuz status</title></head>
<body>
<h1>soyuz status as of {{ .Now.Format "2006-01-02 15:04:05 MST" }}</h1>

<h2>Builders</h2>
<table>
<tr><th>name</th><th>processor</th><th>state</th><th>current job</th></tr>
{{ range .Builders }}
<tr>
<td>{{ .Name }}</td>
<td>{{ .Processor }}{{ if .Virtualized }} (virtual){{ end }}</td>
<td>{{ if .Manual }}manual{{ else if not .OK }}disabled: {{ .FailNotes }}{{ else if .Current }}building{{ else }}idle{{ end }}</td>
<td>{{ with .Current }}build {{ .BuildID }} since {{ .DateStarted.Format "15:04:05" }}{{ with .Logtail }}<pre>{{ . }}</pre>{{ end }}{{ end }}</td>
</tr>
{{ end }}
</table>

<h2>Build queue</h2>
<ul>
{{ range $arch := .Archs }}
<li>{{ $arch }}: {{ index $.Queue $arch }} waiting</li>
{{ else }}
<li>queue is empty</li>
{{ end }}
</ul>

{{ with .Candidates }}
<h3>Next candidates</h3>
<table>
<tr><th>score</th><th>source</th><th>arch</th><th>queued</th></tr>
{{ range . }}
<tr><td>{{ .LastScore }}</td><td>{{ .SourceName }} {{ .SourceVersion }}</td><td>{{ .Architecture }}</td><td>{{ .DateQueued.Format "2006-01-02 15:04" }}</td></tr>
{{ end }}
</table>
{{ end }}

<h2>Disk</h2>
{{ if .DiskErr }}<p>{{ .DiskErr }}</p>{{ else }}<p>{{ bytes .FreeBytes }} free in the archive root</p>{{ end }}
</body>
</html>
`))

// Server renders the status page.
type Server struct {
	Store *store.Store
	Log   *log.Logger
	// Root is the directory containing the published archives.
	Root string
	// Candidates is the number of top queue candidates to list.
	Candidates int
}

func (s *Server) collect(ctx context.Context) (*page, error) {
	p := &page{}
	err := s.Store.View(ctx, func(tx *store.Tx) error {
		p.Now = tx.Now()
		builders, err := tx.Builders()
		if err != nil {
			return err
		}
		for _, b := range builders {
			bs := builderStatus{Builder: b}
			q, err := tx.QueueEntryByBuilder(b.ID)
			if err != nil && !xerrors.Is(err, store.ErrNotFound) {
				return err
			}
			if q != nil {
				bs.Current = q
			}
			p.Builders = append(p.Builders, bs)
		}
		if p.Queue, err = tx.QueueLength(); err != nil {
			return err
		}
		for arch := range p.Queue {
			p.Archs = append(p.Archs, arch)
		}
		sort.Strings(p.Archs)
		cands, err := tx.WaitingCandidates()
		if err != nil {
			return err
		}
		if len(cands) > s.Candidates {
			cands = cands[:s.Candidates]
		}
		p.Candidates = cands
		return nil
	})
	if err != nil {
		return nil, err
	}
	free, err := freeBytes(s.Root)
	if err != nil {
		p.DiskErr = err.Error()
	}
	p.FreeBytes = free
	return p, nil
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func freeBytes(dir string) (uint64, error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(dir, &fs); err != nil {
		return 0, err
	}
	return fs.Bavail * uint64(fs.Bsize), nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	p, err := s.collect(r.Context())
	if err != nil {
		s.Log.Printf("status: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusTmpl.Execute(w, p); err != nil {
		s.Log.Printf("status: rendering: %v", err)
	}
}

// Handler returns the mux serving the status page on /, metrics on
// /metrics and the archive root on /archive/.
func (s *Server) Handler(precompressed bool) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", s)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/archive/", http.StripPrefix("/archive", ArchiveHandler(s.Root, precompressed)))
	return mux
}

// ArchiveHandler serves the files below root. With precompressed set, clients
// accepting gzip get the .gz variant of a file if it exists.
func ArchiveHandler(root string, precompressed bool) http.Handler {
	if precompressed {
		return gzipped.FileServer(gzipped.Dir(root))
	}
	return http.FileServer(http.Dir(root))
}

// Serve serves h on ln, accepting at most maxConns concurrent connections
// (if positive), until ctx is canceled.
func Serve(ctx context.Context, ln net.Listener, h http.Handler, maxConns int) error {
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	srv := &http.Server{Handler: h}
	var eg errgroup.Group
	eg.Go(func() error {
		if err := srv.Serve(ln); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, canc := context.WithTimeout(context.Background(), 5*time.Second)
		defer canc()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

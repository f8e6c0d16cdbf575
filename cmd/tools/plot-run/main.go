// Command plot-run renders a recorded session as two PNGs: the odometry
// path seen from above and the drive commands over time. Runs are read
// from a telemetry database or from a live car's API.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"log"
	"net/url"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/racecar/internal/db"
	"github.com/banshee-data/racecar/internal/httputil"
	"github.com/banshee-data/racecar/internal/security"
)

var (
	dbPath    = flag.String("db", "", "Telemetry database to read")
	apiURL    = flag.String("url", "", "Base URL of a running car, e.g. http://racecar.local:8080")
	sessionID = flag.String("session", "", "Session to plot; defaults to the latest")
	outPrefix = flag.String("out", "", "Output prefix; writes <out>-path.png and <out>-commands.png (default run-<session>)")
)

type run struct {
	session     db.Session
	ticks       []db.Tick
	transitions []db.Transition
}

// source loads sessions from either backend.
type source interface {
	latest(ctx context.Context) (db.Session, error)
	load(ctx context.Context, id string) (run, error)
}

type dbSource struct{ db *db.DB }

func (s dbSource) latest(ctx context.Context) (db.Session, error) {
	sessions, err := s.db.Sessions(ctx, 1)
	if err != nil {
		return db.Session{}, err
	}
	if len(sessions) == 0 {
		return db.Session{}, db.ErrNoSession
	}
	return sessions[0], nil
}

func (s dbSource) load(ctx context.Context, id string) (run, error) {
	var r run
	var err error
	if r.session, err = s.db.Session(ctx, id); err != nil {
		return r, err
	}
	if r.ticks, err = s.db.Ticks(ctx, id); err != nil {
		return r, err
	}
	r.transitions, err = s.db.Transitions(ctx, id)
	return r, err
}

type apiSource struct {
	client httputil.HTTPClient
	base   string
}

func (s apiSource) latest(ctx context.Context) (db.Session, error) {
	var sessions []db.Session
	if err := httputil.GetJSON(ctx, s.client, s.base+"/api/sessions?limit=1", &sessions); err != nil {
		return db.Session{}, err
	}
	if len(sessions) == 0 {
		return db.Session{}, db.ErrNoSession
	}
	return sessions[0], nil
}

func (s apiSource) load(ctx context.Context, id string) (run, error) {
	r := run{session: db.Session{ID: id}}
	q := "?id=" + url.QueryEscape(id)
	if err := httputil.GetJSON(ctx, s.client, s.base+"/api/sessions/ticks"+q, &r.ticks); err != nil {
		return r, err
	}
	err := httputil.GetJSON(ctx, s.client, s.base+"/api/sessions/transitions"+q, &r.transitions)
	return r, err
}

func loadRun(ctx context.Context, src source, id string) (run, error) {
	if id == "" {
		s, err := src.latest(ctx)
		if err != nil {
			return run{}, fmt.Errorf("failed to find latest session: %w", err)
		}
		id = s.ID
	}
	r, err := src.load(ctx, id)
	if err != nil {
		return run{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return r, nil
}

// pathPlot draws the odometry position on the floor plane. y is vertical,
// so the path is x against z.
func pathPlot(r run) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Session %s - Odometry Path", r.session.ID)
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "z (m)"

	pts := make(plotter.XYs, 0, len(r.ticks))
	for _, t := range r.ticks {
		pts = append(pts, plotter.XY{X: t.PosX, Y: t.PosZ})
	}
	if len(pts) == 0 {
		return p, nil
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	line.Width = vg.Points(1)
	p.Add(line, plotter.NewGrid())
	return p, nil
}

// commandPlot draws actuated speed and angle against seconds since the
// first tick, with transitions marked on the zero line.
func commandPlot(r run) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Session %s - Drive Commands", r.session.ID)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Command"
	p.Y.Min, p.Y.Max = -1, 1
	if len(r.ticks) == 0 {
		return p, nil
	}

	t0 := r.ticks[0].Time
	since := func(t time.Time) float64 { return t.Sub(t0).Seconds() }

	speed := make(plotter.XYs, 0, len(r.ticks))
	angle := make(plotter.XYs, 0, len(r.ticks))
	for _, t := range r.ticks {
		speed = append(speed, plotter.XY{X: since(t.Time), Y: t.Speed})
		angle = append(angle, plotter.XY{X: since(t.Time), Y: t.Angle})
	}

	series := []struct {
		name string
		pts  plotter.XYs
		c    color.Color
	}{
		{"speed", speed, color.RGBA{R: 44, G: 160, B: 44, A: 255}},
		{"angle", angle, color.RGBA{R: 214, G: 39, B: 40, A: 255}},
	}
	for _, s := range series {
		line, err := plotter.NewLine(s.pts)
		if err != nil {
			return nil, err
		}
		line.Color = s.c
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}

	if len(r.transitions) > 0 {
		marks := make(plotter.XYs, 0, len(r.transitions))
		for _, tr := range r.transitions {
			marks = append(marks, plotter.XY{X: since(tr.Time), Y: 0})
		}
		scatter, err := plotter.NewScatter(marks)
		if err != nil {
			return nil, err
		}
		scatter.Color = color.Black
		p.Add(scatter)
		p.Legend.Add("transition", scatter)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// outputPrefix picks the file prefix for a run and keeps it under the
// working or temp directory.
func outputPrefix(flagValue, sessionID string) (string, error) {
	prefix := flagValue
	if prefix == "" {
		prefix = "run-" + security.SanitizeFilename(sessionID)
	}
	if err := security.ValidateOutputPath(prefix + "-path.png"); err != nil {
		return "", err
	}
	return prefix, nil
}

func render(r run, prefix string) ([]string, error) {
	path, err := pathPlot(r)
	if err != nil {
		return nil, err
	}
	commands, err := commandPlot(r)
	if err != nil {
		return nil, err
	}
	pathFile := prefix + "-path.png"
	if err := path.Save(8*vg.Inch, 8*vg.Inch, pathFile); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", pathFile, err)
	}
	commandsFile := prefix + "-commands.png"
	if err := commands.Save(14*vg.Inch, 6*vg.Inch, commandsFile); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", commandsFile, err)
	}
	return []string{pathFile, commandsFile}, nil
}

func main() {
	flag.Parse()

	var src source
	switch {
	case *dbPath != "" && *apiURL != "":
		log.Fatal("use either -db or -url, not both")
	case *dbPath != "":
		database, err := db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer database.Close()
		src = dbSource{db: database}
	case *apiURL != "":
		src = apiSource{client: httputil.NewStandardClient(nil), base: strings.TrimRight(*apiURL, "/")}
	default:
		log.Fatal("one of -db or -url is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r, err := loadRun(ctx, src, *sessionID)
	if err != nil {
		log.Fatal(err)
	}
	prefix, err := outputPrefix(*outPrefix, r.session.ID)
	if err != nil {
		log.Fatal(err)
	}
	files, err := render(r, prefix)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("session %s: %d ticks, %d transitions -> %s", r.session.ID, len(r.ticks), len(r.transitions), strings.Join(files, ", "))
}

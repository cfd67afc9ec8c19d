package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/JaimeStill/rancoqc/internal/analysis"
	"github.com/JaimeStill/rancoqc/internal/export"
	"github.com/JaimeStill/rancoqc/internal/history"
	"github.com/JaimeStill/rancoqc/internal/session"
	"github.com/JaimeStill/rancoqc/internal/submission"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"analyze":     runAnalyze,
	"rtsp":        runStream,
	"manual":      runManual,
	"history":     runHistory,
	"resync":      runResync,
	"sync":        runSync,
	"clear-cache": runClearCache,
	"labels":      runLabels,
	"add-label":   runAddLabel,
	"profile":     runProfile,
	"status":      runStatus,
	"logout":      runLogout,
}

func runAnalyze(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	image := fs.String("image", "", "path of the JPEG or PNG image")
	var form formFlags
	var review reviewFlags
	form.bind(fs)
	review.bind(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	if err := a.start(ctx, form.profile); err != nil {
		return err
	}

	var img analysis.Image
	if *image != "" {
		data, err := os.ReadFile(*image)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		img = analysis.Image{Name: filepath.Base(*image), Data: data}
	}

	if _, err := a.station.Capture(ctx, img, form.form()); err != nil {
		return err
	}
	return a.review(ctx, form.form(), &review)
}

func runStream(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("rtsp", flag.ContinueOnError)
	url := fs.String("url", "", "stream URL (rtsp://...)")
	var form formFlags
	var review reviewFlags
	form.bind(fs)
	review.bind(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	if err := a.start(ctx, form.profile); err != nil {
		return err
	}
	if _, err := a.station.CaptureStream(ctx, *url, form.form()); err != nil {
		return err
	}
	return a.review(ctx, form.form(), &review)
}

func runManual(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("manual", flag.ContinueOnError)
	var form formFlags
	var counts countFlags
	exportPath := fs.String("export", "", "write the CSV report to this path, or a directory for the default name")
	form.bind(fs)
	fs.Var(&counts, "count", "defect count, LABEL=N (repeatable)")
	if err := parse(fs, args); err != nil {
		return err
	}

	if err := a.start(ctx, form.profile); err != nil {
		return err
	}
	result, err := a.station.ManualEntry(ctx, form.form(), counts.counts())
	if err != nil {
		return err
	}
	a.printResult(result)

	if *exportPath != "" {
		return a.export(ctx, form.form(), *exportPath)
	}
	return nil
}

// start resolves the session and applies an explicit profile choice.
func (a *app) start(ctx context.Context, profile string) error {
	if _, err := a.begin(ctx); err != nil {
		return err
	}
	if profile == "" {
		return nil
	}
	_, err := a.station.SelectProfile(profile)
	return err
}

// review applies the requested edits to the active result, then exports
// and submits it.
func (a *app) review(ctx context.Context, form analysis.Form, r *reviewFlags) error {
	ws := a.station.Workspace

	for i, label := range r.set.labels {
		if _, err := ws.SetCount(label, r.set.values[i]); err != nil {
			return err
		}
	}
	for i, label := range r.adjust.labels {
		if _, err := ws.Adjust(label, r.adjust.values[i]); err != nil {
			return err
		}
	}
	for i, label := range r.add.labels {
		out, err := a.station.AddLabel(ctx, label, r.add.values[i], r.persist)
		if err != nil {
			return fmt.Errorf("add %s: %w", label, err)
		}
		if out.Persist == analysis.PersistFailed {
			a.printf("warning: %s counted but not saved to the profile: %v\n", label, out.PersistErr)
		}
	}

	result, err := ws.Snapshot()
	if err != nil {
		return err
	}
	a.printResult(result)

	if r.export != "" {
		if err := a.export(ctx, form, r.export); err != nil {
			return err
		}
	}
	if r.submit || r.async {
		return a.submit(ctx, form, r.async)
	}
	return nil
}

func (a *app) export(ctx context.Context, form analysis.Form, target string) error {
	var buf bytes.Buffer
	name, err := a.station.Export(ctx, &buf, form)
	if err != nil {
		return err
	}

	path := target
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		path = filepath.Join(target, name)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	a.printf("report: %s\n", path)
	return nil
}

func (a *app) submit(ctx context.Context, form analysis.Form, async bool) error {
	var (
		receipt submission.Receipt
		err     error
	)
	if async {
		task, terr := a.station.SubmitAsync(ctx, form)
		if terr != nil {
			return terr
		}
		a.printf("submitting in background...\n")
		receipt, err = task.Wait()
	} else {
		receipt, err = a.station.Submit(ctx, form)
	}
	if err != nil {
		return err
	}

	switch receipt.Outcome {
	case submission.OutcomeSynced:
		a.printf("stored remotely: %s\n", receipt.RemoteID)
	case submission.OutcomeStoredLocally:
		a.printf("remote store unavailable (%v), saved to the local cache\n", receipt.PrimaryErr)
	case submission.OutcomeAlreadySynced:
		a.printf("already stored remotely: %s\n", receipt.RemoteID)
	default:
		a.printf("submission: %s\n", receipt.Outcome)
	}
	return nil
}

type historyFlags struct {
	user     string
	kind     string
	from     dayFlag
	to       dayFlag
	limit    int
	export   string
	jsonView bool
}

func (h *historyFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&h.user, "user", "", "filter by operator")
	fs.StringVar(&h.kind, "type", "", "filter by analysis type")
	fs.Var(&h.from, "from", "first day to include (YYYY-MM-DD)")
	fs.Var(&h.to, "to", "last day to include (YYYY-MM-DD)")
	fs.IntVar(&h.limit, "limit", history.DefaultLimit, "maximum records")
}

func (h *historyFlags) filters() history.Filters {
	return history.Filters{
		Operator:     h.user,
		AnalysisType: h.kind,
		From:         time.Time(h.from),
		To:           time.Time(h.to),
		Limit:        h.limit,
	}
}

type dayFlag time.Time

func (d *dayFlag) String() string {
	if t := time.Time(*d); !t.IsZero() {
		return t.Format(time.DateOnly)
	}
	return ""
}

func (d *dayFlag) Set(s string) error {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("invalid day %q, want YYYY-MM-DD", s)
	}
	*d = dayFlag(t)
	return nil
}

func runHistory(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	var h historyFlags
	h.bind(fs)
	fs.StringVar(&h.export, "export", "", "write the history table as CSV to this path, or a directory for the default name")
	fs.BoolVar(&h.jsonView, "json", false, "print records as JSON")
	if err := parse(fs, args); err != nil {
		return err
	}

	sess, err := a.begin(ctx)
	if err != nil {
		return err
	}

	records, err := a.station.History.Load(ctx, h.filters())
	if err != nil {
		return err
	}

	if h.jsonView {
		return a.printJSON(records)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tOPERATOR\tPROFILE\tLOT\tTOTAL\tSYNCED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%v\n",
			r.ID, r.Timestamp.Local().Format(analysis.TimestampLayout), r.UserName, r.Profile, r.Lot, r.TotalDetections, r.Synced)
	}
	tw.Flush()

	stats := a.station.History.Stats()
	a.printf("\n%d records, %d synced, %d pending\n", stats.Total, stats.Synced, stats.Pending)

	if h.export == "" {
		return nil
	}

	name, _ := session.SafeDisplayName(sess)
	now := time.Now()
	path := h.export
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, export.HistoryFilename(now))
	}
	if err := os.WriteFile(path, export.HistoryTable(records, name, now), 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	a.printf("report: %s\n", path)
	return nil
}

func runResync(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("resync", flag.ContinueOnError)
	id := fs.String("id", "", "history record id")
	var h historyFlags
	h.bind(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" {
		fs.Usage()
		return errUsage
	}

	if _, err := a.begin(ctx); err != nil {
		return err
	}
	if _, err := a.station.History.Load(ctx, h.filters()); err != nil {
		return err
	}

	receipt, err := a.station.History.Resync(ctx, *id)
	if err != nil {
		return err
	}
	a.printf("resync: %s %s\n", receipt.Outcome, receipt.RemoteID)
	return nil
}

func runSync(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	if err := parse(fs, args); err != nil {
		return err
	}

	sess, err := a.begin(ctx)
	if err != nil {
		return err
	}
	name, _ := session.SafeDisplayName(sess)

	report, err := a.station.History.SyncPending(ctx, name)
	if err != nil {
		return err
	}
	a.printf("%s\n", report.Message)
	return nil
}

func runClearCache(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("clear-cache", flag.ContinueOnError)
	if err := parse(fs, args); err != nil {
		return err
	}

	if _, err := a.begin(ctx); err != nil {
		return err
	}
	report, err := a.station.History.ClearSyncedCache(ctx)
	if err != nil {
		return err
	}
	a.printf("%s\n", report.Message)
	return nil
}

func runLabels(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("labels", flag.ContinueOnError)
	profile := fs.String("profile", "", "inspection profile")
	if err := parse(fs, args); err != nil {
		return err
	}

	if err := a.start(ctx, *profile); err != nil {
		return err
	}

	p := a.station.Profile()
	a.printf("%s\n", p.Title)
	for _, label := range a.station.Labels(ctx) {
		a.printf("  %-24s %s\n", label, p.Describe(label))
	}
	return nil
}

func runAddLabel(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("add-label", flag.ContinueOnError)
	profile := fs.String("profile", "", "inspection profile")
	label := fs.String("label", "", "label to add")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *label == "" {
		fs.Usage()
		return errUsage
	}

	if err := a.start(ctx, *profile); err != nil {
		return err
	}
	p := a.station.Profile()
	if err := a.station.Registry.AddLabel(ctx, p, *label); err != nil {
		return err
	}
	a.printf("added %s to %s\n", *label, p.Name)
	return nil
}

func runProfile(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	selected := fs.String("select", "", "profile to make active")
	if err := parse(fs, args); err != nil {
		return err
	}

	if err := a.start(ctx, *selected); err != nil {
		return err
	}
	p := a.station.Profile()
	a.printf("%s (%s): %s\n", p.Name, p.ID, p.Description)
	return nil
}

func runStatus(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	if err := parse(fs, args); err != nil {
		return err
	}

	sess, err := a.begin(ctx)
	if err != nil {
		return err
	}
	status, err := a.station.History.DatabaseStatus(ctx)
	if err != nil {
		return err
	}

	name, _ := session.SafeDisplayName(sess)
	a.printf("operator: %s\n", name)
	a.printf("remote store: %s\n", map[bool]string{true: "connected", false: "unreachable"}[status.Connected])
	a.printf("local cache: %d pending, %d failed, %d synced\n", status.LocalPending, status.LocalFailed, status.LocalSynced)
	return nil
}

func runLogout(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := a.station.Logout(ctx); err != nil {
		return err
	}
	a.printf("signed out\n")
	return nil
}

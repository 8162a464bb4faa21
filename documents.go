package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelfwise/bookcat/internal/config"
	"github.com/shelfwise/bookcat/internal/domain"
	"github.com/shelfwise/bookcat/internal/dropwatch"
)

// Download file permissions (owner rw, group/other r).
const downloadFilePermissions = 0o644

func newDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "Upload and manage documents",
	}

	cmd.AddCommand(
		newDocumentsLsCmd(),
		newDocumentsUploadCmd(),
		newDocumentsRmCmd(),
		newDocumentsDownloadCmd(),
		newDocumentsSummaryCmd(),
		newDocumentsWatchCmd(),
	)

	return cmd
}

func newDocumentsLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List uploaded documents",
		Args:  cobra.NoArgs,
		RunE:  runDocumentsLs,
	}
}

func newDocumentsUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "upload <file>...",
		Short:   "Upload one or more files",
		Long:    "Upload files. Size and type limits come from the [upload] config section.",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return requireLogin(cmd) },
		RunE:    runDocumentsUpload,
	}
}

func newDocumentsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Short:   "Delete a document",
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return requireLogin(cmd) },
		RunE:    runDocumentsRm,
	}
}

func newDocumentsDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runDocumentsDownload,
	}

	cmd.Flags().StringP("dest", "d", "", "destination file, - for stdout (required)")
	_ = cmd.MarkFlagRequired("dest")

	return cmd
}

func newDocumentsSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <id>",
		Short: "Ask the backend to summarize a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runDocumentsSummary,
	}
}

func newDocumentsWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Upload files dropped into a folder",
		Long: `Watch a folder and upload every file that appears in it once it has stopped
changing. A file is uploaded again only when its content changes. Size and
type limits come from the [upload] config section.

Each folder has its own lock, so different folders can be watched at the
same time but one folder only once. Send SIGHUP, or run
'bookcat documents watch --rescan <dir>', to make the watcher of that folder
rescan it. 'bookcat documents watch --list' shows the running watchers.`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: watchPreRun,
		RunE:    runDocumentsWatch,
	}

	cmd.Flags().Bool("existing", false, "upload files already in the folder at start")
	cmd.Flags().Duration("settle", dropwatch.DefaultSettle, "quiet time before a file is uploaded")
	cmd.Flags().Bool("rescan", false, "ask the watcher of <dir> to rescan it, then exit")
	cmd.Flags().Bool("list", false, "list running watchers, then exit")
	cmd.Flags().String("pid-file", "", "lock file (default: one per folder under the data directory)")
	cmd.MarkFlagsMutuallyExclusive("rescan", "list")

	return cmd
}

// watchPreRun requires a session only for starting a watcher; --list and
// --rescan talk to local processes.
func watchPreRun(cmd *cobra.Command, _ []string) error {
	rescan, _ := cmd.Flags().GetBool("rescan")
	list, _ := cmd.Flags().GetBool("list")

	if rescan || list {
		return nil
	}

	return requireLogin(cmd)
}

func runDocumentsLs(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	env, err := cc.Svc.Documents.List(cmd.Context())
	if err != nil {
		return err
	}

	return cc.emit(env.Data, env.Substituted, func(w io.Writer) {
		printDocuments(w, env.Data)
	})
}

func printDocuments(w io.Writer, docs []domain.Document) {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents uploaded.")
		return
	}

	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		uploaded := d.UploadDate
		if uploaded == "" {
			uploaded = d.UploadedAt
		}

		rows = append(rows, []string{itoa(d.ID), truncate(d.DisplayName(), 40), d.Size, uploaded, d.Status})
	}

	printTable(w, []string{"ID", "NAME", "SIZE", "UPLOADED", "STATUS"}, rows)
}

// checkUpload applies the [upload] limits before anything is sent.
func checkUpload(u config.UploadConfig, path string, info os.FileInfo) error {
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file", path)
	}

	if len(u.AllowedTypes) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		allowed := slices.ContainsFunc(u.AllowedTypes, func(t string) bool { return strings.EqualFold(t, ext) })

		if !allowed {
			return fmt.Errorf("%s: file type %q not allowed (allowed: %s)", path, ext, strings.Join(u.AllowedTypes, ", "))
		}
	}

	if limit := u.MaxFileSizeBytes(); limit > 0 && info.Size() > limit {
		return fmt.Errorf("%s: %s exceeds the %s limit", path, formatSize(info.Size()), u.MaxFileSize)
	}

	return nil
}

func runDocumentsUpload(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	uploaded := make([]domain.Document, 0, len(args))
	substituted := false

	for _, path := range args {
		doc, offline, err := uploadFile(cmd, cc, path)
		if err != nil {
			return err
		}

		uploaded = append(uploaded, doc)
		substituted = substituted || offline

		cc.Statusf("Uploaded %s as document %d\n", filepath.Base(path), doc.ID)
	}

	if cc.format() == outputTable {
		if substituted {
			cc.Statusf(offlineNotice)
		}

		return nil
	}

	return cc.emit(uploaded, substituted, nil)
}

func uploadFile(cmd *cobra.Command, cc *CLIContext, path string) (domain.Document, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Document{}, false, err
	}

	if err := checkUpload(cc.Cfg.Upload, path, info); err != nil {
		return domain.Document{}, false, err
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.Document{}, false, err
	}
	defer f.Close()

	env, err := cc.Svc.Documents.Upload(cmd.Context(), filepath.Base(path), f)
	if err != nil {
		return domain.Document{}, false, fmt.Errorf("uploading %s: %w", path, err)
	}

	return env.Data, env.Substituted, nil
}

func runDocumentsRm(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	env, err := cc.Svc.Documents.Delete(cmd.Context(), id)
	if err != nil {
		return err
	}

	return cc.emitMessage(env.Data, env.Substituted, messageOr(env.Data, fmt.Sprintf("Deleted document %d.", id)))
}

func runDocumentsDownload(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	dest, _ := cmd.Flags().GetString("dest")

	env, err := cc.Svc.Documents.Download(cmd.Context(), id)
	if err != nil {
		return err
	}

	if env.Substituted {
		cc.Statusf(offlineNotice)
	}

	if dest == "-" {
		_, err := cc.Out.Write(env.Data.Data)
		return err
	}

	if err := os.WriteFile(dest, env.Data.Data, downloadFilePermissions); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}

	cc.Statusf("Saved %s to %s\n", formatSize(int64(len(env.Data.Data))), dest)

	return nil
}

func runDocumentsSummary(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	cc.Statusf("Summarizing document %d...\n", id)

	env, err := cc.Svc.Documents.Summary(cmd.Context(), id)
	if err != nil {
		return err
	}

	return cc.emitMessage(env.Data, env.Substituted, env.Data.Text())
}

func runDocumentsWatch(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	dataDir := config.DefaultDataDir()

	if list, _ := cmd.Flags().GetBool("list"); list {
		return runWatchList(cc, dataDir)
	}

	if len(args) != 1 {
		return errors.New("watch needs the folder to watch")
	}

	dir, err := canonicalWatchDir(args[0])
	if err != nil {
		return err
	}

	lockPath, _ := cmd.Flags().GetString("pid-file")
	if lockPath == "" {
		if dataDir == "" {
			return errors.New("cannot determine the data directory; pass --pid-file")
		}

		lockPath = watchLockPath(dataDir, dir)
	}

	if rescan, _ := cmd.Flags().GetBool("rescan"); rescan {
		rec, err := requestRescan(lockPath, dir)
		if err != nil {
			return err
		}

		cc.Statusf("Rescan of %s requested (watcher PID %d).\n", rec.Dir, rec.PID)

		return nil
	}

	lock, err := acquireWatchLock(lockPath, watchRecord{PID: os.Getpid(), Dir: dir, StartedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	defer lock.Release()

	sigs := notifyWatchSignals(cmd.Context(), dir, cc.Logger)
	defer sigs.stop()

	existing, _ := cmd.Flags().GetBool("existing")
	settle, _ := cmd.Flags().GetDuration("settle")

	w := dropwatch.New(cc.Svc.Documents, dropwatch.Options{
		AllowedTypes: cc.Cfg.Upload.AllowedTypes,
		MaxFileSize:  cc.Cfg.Upload.MaxFileSizeBytes(),
		Settle:       settle,
		ScanExisting: existing,
		Rescan:       sigs.rescan,
		OnResult:     func(r dropwatch.Result) { reportDrop(cc, r) },
		Logger:       cc.Logger,
	})

	cc.Statusf("Watching %s (Ctrl-C to stop)\n", dir)

	if err := w.Run(sigs.ctx, dir); err != nil {
		return err
	}

	cc.Statusf("Stopped watching %s\n", dir)

	return nil
}

func runWatchList(cc *CLIContext, dataDir string) error {
	if dataDir == "" {
		return errors.New("cannot determine the data directory")
	}

	watchers, err := listWatchers(dataDir)
	if err != nil {
		return err
	}

	if watchers == nil {
		watchers = []watchRecord{}
	}

	return cc.emit(watchers, false, func(w io.Writer) {
		if len(watchers) == 0 {
			fmt.Fprintln(w, "No running watchers.")
			return
		}

		rows := make([][]string, 0, len(watchers))
		for _, rec := range watchers {
			rows = append(rows, []string{rec.Dir, itoa(rec.PID), rec.StartedAt.Local().Format(time.DateTime)})
		}

		printTable(w, []string{"FOLDER", "PID", "STARTED"}, rows)
	})
}

func reportDrop(cc *CLIContext, r dropwatch.Result) {
	name := filepath.Base(r.Path)

	switch {
	case r.Err != nil:
		fmt.Fprintf(cc.ErrOut, "Skipped %s: %v\n", name, r.Err)
	case r.Substituted:
		cc.Statusf("Uploaded %s as document %d (offline)\n", name, r.Document.ID)
	default:
		cc.Statusf("Uploaded %s as document %d\n", name, r.Document.ID)
	}
}

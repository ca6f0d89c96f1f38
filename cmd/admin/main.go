package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"cvintake/internal/config"
	"cvintake/internal/database"
	"cvintake/internal/tasks"
)

func main() {
	var (
		list    = flag.Int("list", 0, "列出最近 N 条投递流水")
		requeue = flag.String("requeue", "", "为指定对象 Key（或唯一的申请号）重新安排跟进邮件")
		delay   = flag.Duration("delay", 0, "重新安排时的延迟（默认立即发送）")
	)
	flag.Parse()

	_ = godotenv.Load()

	if *list <= 0 && strings.TrimSpace(*requeue) == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadOps()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	ledger := database.NewLedger(db)

	ctx := context.Background()

	if *list > 0 {
		if err := printRecent(ctx, ledger, *list); err != nil {
			log.Fatalf("list submissions: %v", err)
		}
	}

	if ref := strings.TrimSpace(*requeue); ref != "" {
		if err := requeueFollowUp(ctx, ledger, cfg.Redis.Addr(), ref, *delay); err != nil {
			log.Fatalf("requeue follow-up: %v", err)
		}
	}
}

func printRecent(ctx context.Context, ledger *database.Ledger, limit int) error {
	rows, err := ledger.ListRecent(ctx, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "APPLICATION\tOBJECT KEY\tNAME\tEMAIL\tCREATED\tCONFIRMED\tFOLLOW-UP SENT\tERROR")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			row.ApplicationID,
			row.ObjectKey,
			row.Name,
			row.Email,
			row.CreatedAt.Format(time.RFC3339),
			formatOptional(row.ConfirmationSentAt),
			formatOptional(row.FollowUpSentAt),
			row.ErrorCode,
		)
	}
	return w.Flush()
}

func requeueFollowUp(ctx context.Context, ledger *database.Ledger, redisAddr, ref string, delay time.Duration) error {
	row, err := resolveSubmission(ctx, ledger, ref)
	if err != nil {
		return err
	}

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer client.Close()

	scheduler := tasks.NewFollowUpScheduler(client, time.Local, 0)
	processAt := time.Now().Add(delay)
	err = scheduler.ScheduleAt(ctx, tasks.FollowUpPayload{
		Recipient:     row.Email,
		Name:          row.Name,
		ApplicationID: row.ApplicationID,
		ObjectKey:     row.ObjectKey,
		CorrelationID: row.CorrelationID,
	}, processAt)
	if errors.Is(err, tasks.ErrAlreadyScheduled) {
		fmt.Printf("%s 已有待发送的跟进邮件，未重复入队。\n", row.ObjectKey)
		return nil
	}
	if err != nil {
		return err
	}

	if err := ledger.MarkFollowUpScheduled(ctx, row.ObjectKey, processAt); err != nil {
		return err
	}
	fmt.Printf("已为 %s <%s> 安排跟进邮件，发送时间 %s。\n", row.Name, row.Email, processAt.Format(time.RFC3339))
	return nil
}

// resolveSubmission 先按对象 Key 查找；找不到时把 ref 当作申请号，仅在唯一时接受。
func resolveSubmission(ctx context.Context, ledger *database.Ledger, ref string) (*database.Submission, error) {
	row, err := ledger.FindByObjectKey(ctx, ref)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	rows, err := ledger.FindByApplicationID(ctx, ref)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, database.ErrNotFound
	case 1:
		return &rows[0], nil
	}
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.ObjectKey)
	}
	return nil, fmt.Errorf("application %s matches %d submissions, pass one object key: %s", ref, len(rows), strings.Join(keys, ", "))
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

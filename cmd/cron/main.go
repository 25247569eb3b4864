package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xinyuan_tech/settlement-service/internal/conf"
	"xinyuan_tech/settlement-service/internal/constants"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/robfig/cron/v3"
	_ "go.uber.org/automaxprocs"
)

var (
	flagconf string
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	// 初始化配置
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}

	// 初始化应用
	app, cleanup, err := wireApp(&bc)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	batchSize := constants.DefaultReleaseBatchSize
	retentionDays := 0
	if bc.Settlement != nil {
		if bc.Settlement.ReleaseBatchSize > 0 {
			batchSize = bc.Settlement.ReleaseBatchSize
		}
		retentionDays = bc.Settlement.AuditRetentionDays
	}

	// 创建定时任务调度器（支持秒级调度）
	cronScheduler := cron.New(cron.WithSeconds())

	// 1. 托管定时释放 - 每小时整点执行
	_, err = cronScheduler.AddFunc("0 0 * * * *", func() {
		log.Println("[CRON] Starting escrow release sweep...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		result, err := app.settlementUsecase.ReleaseBySchedule(ctx, time.Now().UTC(), batchSize)
		if err != nil {
			log.Printf("[CRON] Error running escrow release sweep: %v", err)
			return
		}
		log.Printf("[CRON] Escrow release sweep completed: total=%d, success=%d, failed=%d",
			result.TotalCount, result.SuccessCount, result.FailedCount)
		for _, outcome := range result.Outcomes {
			if !outcome.Success {
				log.Printf("[CRON] Escrow release failed: order=%s, escrow=%s, error=%s",
					outcome.OrderID, outcome.EscrowID, outcome.ErrorMessage)
			}
		}
	})
	if err != nil {
		log.Printf("Failed to add escrow release job: %v", err)
	}

	// 2. 打款归集 - 每天凌晨 3 点执行
	_, err = cronScheduler.AddFunc("0 0 3 * * *", func() {
		log.Println("[CRON] Starting payout sweep...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		result, err := app.settlementUsecase.SweepPayouts(ctx, time.Now().UTC())
		if err != nil {
			log.Printf("[CRON] Error running payout sweep: %v", err)
			return
		}
		log.Printf("[CRON] Payout sweep completed: sellers=%d, created=%d, skipped=%d, failed=%d",
			result.TotalSellers, result.CreatedCount, result.SkippedCount, result.FailedCount)
		for _, outcome := range result.Outcomes {
			switch {
			case outcome.ErrorMessage != "":
				log.Printf("[CRON] Payout sweep failed: seller=%d, error=%s",
					outcome.SellerID, outcome.ErrorMessage)
			case outcome.Skipped:
				log.Printf("[CRON] Payout sweep skipped: seller=%d, reason=%s",
					outcome.SellerID, outcome.SkipReason)
			default:
				log.Printf("[CRON] Payout created: seller=%d, payout=%s, amount=%s",
					outcome.SellerID, outcome.PayoutID, outcome.Amount)
			}
		}
	})
	if err != nil {
		log.Printf("Failed to add payout sweep job: %v", err)
	}

	// 3. 审计日志清理 - 每周日凌晨 4 点执行 (retention_days=0 表示永久保留)
	if retentionDays > 0 {
		_, err = cronScheduler.AddFunc("0 0 4 * * 0", func() {
			log.Println("[CRON] Starting audit log purge...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
			count, err := app.settlementUsecase.PurgeAuditLogBefore(ctx, cutoff)
			if err != nil {
				log.Printf("[CRON] Error purging audit log: %v", err)
				return
			}
			log.Printf("[CRON] Audit log purge completed: removed=%d, cutoff=%s",
				count, cutoff.Format("2006-01-02"))
		})
		if err != nil {
			log.Printf("Failed to add audit purge job: %v", err)
		}
	}

	// 启动定时任务
	cronScheduler.Start()
	log.Println("========================================")
	log.Println("Cron jobs started successfully")
	log.Println("Scheduled jobs:")
	log.Println("  - Escrow release sweep: Every hour on the hour")
	log.Println("  - Payout sweep:         Every day at 03:00")
	if retentionDays > 0 {
		log.Println("  - Audit log purge:      Every Sunday at 04:00")
	}
	log.Println("========================================")

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gracefully...")

	// 停止定时任务
	ctx := cronScheduler.Stop()
	select {
	case <-ctx.Done():
		log.Println("Cron jobs stopped gracefully")
	case <-time.After(5 * time.Second):
		log.Println("Cron jobs forced to stop after timeout")
	}
}

// 手动触发报名汇总对账脚本
//
// 进度事件会实时维护报名汇总，此脚本用于批量修正存量数据，
// 例如历史数据导入后或怀疑汇总字段漂移时。
//
// 用法:
//   go run scripts/recalculate_progress.go --dry-run
//   go run scripts/recalculate_progress.go --batch-size 200
//   go run scripts/recalculate_progress.go --user-id 42
//   go run scripts/recalculate_progress.go --module-id 7 --section-counts-only

package main

import (
	"context"
	"encoding/json"
	"flag"
	"lms_backend/internal/config"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "只计算不落库，输出将会发生的变更")
	batchSize := flag.Int("batch-size", 0, "每批处理的报名数，0 使用配置值")
	userID := flag.Uint("user-id", 0, "只对账指定用户")
	moduleID := flag.Uint("module-id", 0, "只对账指定模块")
	sectionCountsOnly := flag.Bool("section-counts-only", false, "只刷新 section 总数，不做全量对账")
	flag.Parse()

	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}
	if cfg.Reconcile.BatchSize <= 0 {
		cfg.Reconcile.BatchSize = 100
	}
	if cfg.Reconcile.Workers <= 0 {
		cfg.Reconcile.Workers = 8
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	contentRepo := repository.NewContentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	rollup := service.NewRollupService(enrollmentRepo, progressRepo)
	sectionCount := service.NewSectionCountService(contentRepo, enrollmentRepo, rollup, cfg.Reconcile.CountGranularity)
	reconcile := service.NewReconcileService(enrollmentRepo, rollup, sectionCount, cfg.Reconcile.BatchSize, cfg.Reconcile.Workers)

	// Ctrl+C 只中断批次之间，已处理的报名保持落库状态
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("收到中断信号，当前批次处理完后退出...")
		cancel()
	}()

	if *sectionCountsOnly {
		runSectionCountsOnly(enrollmentRepo, sectionCount, uint(*userID), uint(*moduleID))
		return
	}

	log.Println("开始批量对账...")
	report, err := reconcile.BulkRecalculate(ctx, service.ReconcileOptions{
		BatchSize:            *batchSize,
		DryRun:               *dryRun,
		UserID:               uint(*userID),
		ModuleID:             uint(*moduleID),
		RefreshSectionCounts: !*dryRun,
	})
	if err != nil {
		log.Fatalf("对账失败: %v", err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	os.Stdout.Write(out)
	os.Stdout.WriteString("\n")

	if report.Errors > 0 {
		os.Exit(1)
	}
}

func runSectionCountsOnly(
	enrollmentRepo *repository.EnrollmentRepository,
	sectionCount *service.SectionCountService,
	userID, moduleID uint,
) {
	moduleIDs, err := enrollmentRepo.DistinctModuleIDs(userID, moduleID)
	if err != nil {
		log.Fatalf("查询模块列表失败: %v", err)
	}

	total := 0
	for _, id := range moduleIDs {
		updated, err := sectionCount.UpdateModuleSectionCounts(id)
		if err != nil {
			log.Printf("模块 %d 刷新失败: %v", id, err)
			continue
		}
		total += updated
	}
	log.Printf("完成，共刷新 %d 个模块、%d 条报名", len(moduleIDs), total)
}

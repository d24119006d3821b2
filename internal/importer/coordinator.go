package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ridersettle/internal/calculator"
	"ridersettle/internal/model"
	"ridersettle/internal/parser"
	"ridersettle/internal/resolver"
	"ridersettle/internal/rule"
)

// 导入阶段（写入 IngestError.Stage）
const (
	StageRequest  = "request"
	StageRule     = "load_rule"
	StageFetch    = "fetch"
	StageDecode   = "decode"
	StagePeriod   = "create_period"
	StageSheets   = "read_sheets"
	StagePersist  = "persist"
	StageFinalize = "finalize"
)

// RuleSource 解析规则来源
type RuleSource interface {
	GetRule(ctx context.Context, branchID, platform string) (*model.ParsingRule, error)
}

// BlobSource 上传文件来源
type BlobSource interface {
	FetchBytes(ctx context.Context, path string) ([]byte, error)
}

// Repository 结算周期与记录的持久化
type Repository interface {
	CreatePeriod(ctx context.Context, p *model.SettlementPeriod) error
	InsertRecords(ctx context.Context, periodID string, records []model.SettlementRecord, sheets []model.SheetSummary) error
	CompletePeriod(ctx context.Context, id string, recordsCount int) error
	FailPeriod(ctx context.Context, id string, reason string) error
	TouchLastIngest(ctx context.Context, t time.Time) error
}

// Deps 协调器依赖
type Deps struct {
	Rules  RuleSource
	Blobs  BlobSource
	Riders resolver.RiderDirectory
	Repo   Repository
}

// Coordinator 导入协调器
type Coordinator struct {
	deps     Deps
	resolver *resolver.Resolver
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
}

// Option 协调器选项
type Option func(*Coordinator)

// WithLogger 设置日志
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLocation 设置解析文件名日期与默认周期时使用的时区
func WithLocation(loc *time.Location) Option {
	return func(c *Coordinator) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithClock 设置时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCoordinator 创建导入协调器
func NewCoordinator(deps Deps, opts ...Option) *Coordinator {
	c := &Coordinator{
		deps:   deps,
		logger: slog.Default(),
		loc:    time.Local,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resolver = resolver.New(deps.Riders, c.logger)
	return c
}

// Request 导入请求
type Request struct {
	FilePath  string `json:"filePath"`
	FileName  string `json:"fileName,omitempty"` // 原始文件名；为空时取 FilePath 的文件名
	BranchID  string `json:"branchId"`
	CompanyID string `json:"companyId,omitempty"`
	Platform  string `json:"platformName"`

	// Rule 非 nil 时直接使用，不查询规则存储
	Rule *model.ParsingRule `json:"-"`
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/info/warning/sheet_done/done/error
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// Run 同步执行一次导入。硬错误返回 *model.IngestError，结果中 Success=false；
// 软问题（缺失工作表、未匹配骑手、文件名不匹配）只体现在结果里
func (c *Coordinator) Run(ctx context.Context, req Request) (*model.RunResult, error) {
	return c.run(ctx, req, func(ProgressEvent) {})
}

// Import 执行导入，返回进度通道；最后一个事件为 done 或 error
func (c *Coordinator) Import(ctx context.Context, req Request) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)

		result, err := c.run(ctx, req, func(evt ProgressEvent) {
			c.sendProgress(progressChan, evt)
		})

		final := ProgressEvent{
			Type:      "done",
			Message:   "导入完成",
			Data:      result,
			Timestamp: time.Now(),
		}
		if err != nil {
			final.Type = "error"
			final.Message = err.Error()
		}
		// 终止事件不可丢弃
		select {
		case progressChan <- final:
		case <-ctx.Done():
		}
	}()

	return progressChan
}

// runState 单次导入的上下文
type runState struct {
	req    Request
	emit   func(ProgressEvent)
	result *model.RunResult
	period *model.SettlementPeriod
}

func (c *Coordinator) run(ctx context.Context, req Request, emit func(ProgressEvent)) (*model.RunResult, error) {
	st := &runState{
		req:    req,
		emit:   emit,
		result: &model.RunResult{Sheets: []model.SheetSummary{}},
	}
	log := c.logger.With("branch_id", req.BranchID, "platform", req.Platform, "file", req.FilePath)

	c.progress(st, "start", "开始导入结算文件", map[string]string{
		"filePath": req.FilePath,
		"platform": req.Platform,
	})

	if req.FilePath == "" || req.BranchID == "" || req.Platform == "" {
		return c.abort(st, log, model.NewIngestError(StageRequest, model.ErrBadRequest,
			errors.New("filePath, branchId and platformName are required")))
	}

	// 规则
	pr, err := c.loadRule(ctx, req)
	if err != nil {
		return c.abort(st, log, err)
	}

	// 文件
	data, err := c.deps.Blobs.FetchBytes(ctx, req.FilePath)
	if err != nil {
		kind := model.ErrUnavailable
		if errors.Is(err, model.ErrNotFound) {
			kind = model.ErrNotFound
		}
		return c.abort(st, log, model.NewIngestError(StageFetch, kind, err))
	}

	wb, err := parser.OpenWorkbook(data)
	if err != nil {
		return c.abort(st, log, model.NewIngestError(StageDecode, model.ErrDecode, err))
	}
	defer wb.Close()

	// 结算周期（第一个持久化副作用）
	period := c.newPeriod(req, pr)
	if err := c.deps.Repo.CreatePeriod(ctx, period); err != nil {
		return c.abort(st, log, model.NewIngestError(StagePeriod, model.ErrPersistence, err))
	}
	st.period = period
	st.result.PeriodID = period.ID
	st.result.PeriodStart = period.StartDate
	st.result.PeriodEnd = period.EndDate
	log = log.With("period_id", period.ID)

	c.progress(st, "info", fmt.Sprintf("结算周期: %s", period.PeriodName), map[string]interface{}{
		"periodId":   period.ID,
		"periodName": period.PeriodName,
		"sheets":     len(pr.Sheets),
	})

	// 工作表
	records, err := c.readSheets(ctx, st, log, wb, pr)
	if err != nil {
		return c.failPeriod(ctx, st, log, err)
	}

	// 批量写入：整体成功或整体失败，只尝试一次
	if err := c.deps.Repo.InsertRecords(ctx, period.ID, records, st.result.Sheets); err != nil {
		return c.failPeriod(ctx, st, log, model.NewIngestError(StagePersist, model.ErrPersistence, err))
	}

	if err := c.deps.Repo.CompletePeriod(context.WithoutCancel(ctx), period.ID, len(records)); err != nil {
		// completed 写入失败时改写为 error
		return c.failPeriod(ctx, st, log, model.NewIngestError(StageFinalize, model.ErrPersistence, err))
	}

	st.result.Success = true
	st.result.RecordsProcessed = len(records)

	if err := c.deps.Repo.TouchLastIngest(context.WithoutCancel(ctx), c.now()); err != nil {
		log.Warn("failed to record last ingest time", "error", err)
	}

	log.Info("ingest completed",
		"records", len(records),
		"sheets", st.result.SheetsProcessed,
		"skipped_sheets", len(st.result.SkippedSheets),
		"unresolved_riders", st.result.UnresolvedRiders,
	)
	return st.result, nil
}

// loadRule 获取并校验规则；存储中的规则同样重新校验
func (c *Coordinator) loadRule(ctx context.Context, req Request) (*model.ParsingRule, error) {
	pr := req.Rule
	if pr == nil {
		var err error
		pr, err = c.deps.Rules.GetRule(ctx, req.BranchID, req.Platform)
		if err != nil {
			switch {
			case errors.Is(err, model.ErrRuleNotFound):
				return nil, model.NewIngestError(StageRule, model.ErrRuleNotFound, err)
			case errors.Is(err, model.ErrInvalidRule):
				return nil, model.NewIngestError(StageRule, model.ErrInvalidRule, err)
			default:
				return nil, model.NewIngestError(StageRule, model.ErrUnavailable, err)
			}
		}
	}

	normalized := rule.Normalize(*pr)
	if err := rule.Validate(&normalized); err != nil {
		return nil, model.NewIngestError(StageRule, model.ErrInvalidRule, err)
	}
	return &normalized, nil
}

// newPeriod 根据文件名推导周期；无法推导时起止都取当前时间
func (c *Coordinator) newPeriod(req Request, pr *model.ParsingRule) *model.SettlementPeriod {
	fileName := req.FileName
	if fileName == "" {
		fileName = req.FilePath
	}

	dr, ok := parser.ExtractPeriod(fileName, pr.FileNamePattern, c.loc)
	if !ok {
		now := c.now().In(c.loc)
		dr = parser.DateRange{Start: now, End: now}
		c.logger.Warn("file name did not yield a settlement period, using current time",
			"file", parser.BaseName(fileName),
			"pattern", pr.FileNamePattern,
		)
	}

	return &model.SettlementPeriod{
		ID:         uuid.New().String(),
		CompanyID:  req.CompanyID,
		BranchID:   req.BranchID,
		Platform:   req.Platform,
		PeriodName: dr.Name(),
		StartDate:  dr.Start,
		EndDate:    dr.End,
		FilePath:   req.FilePath,
		Status:     model.PeriodProcessing,
	}
}

// readSheets 按声明顺序读取工作表并生成记录
func (c *Coordinator) readSheets(ctx context.Context, st *runState, log *slog.Logger, wb *parser.Workbook, pr *model.ParsingRule) ([]model.SettlementRecord, error) {
	var records []model.SettlementRecord

	for i, sh := range pr.Sheets {
		if err := ctx.Err(); err != nil {
			return nil, model.NewIngestError(StageSheets, model.ErrUnavailable, err)
		}

		rows, found, err := wb.ReadSheet(sh.SheetName, sh.StartRow, sh.ColumnMapping)
		if err != nil {
			return nil, model.NewIngestError(StageSheets, model.ErrDecode,
				fmt.Errorf("sheets[%d] %s: %w", i, sh.SheetName, err))
		}

		summary := model.SheetSummary{
			SheetName: sh.SheetName,
			DataKind:  sh.DataKind,
			RowCount:  len(rows),
		}

		if !found {
			summary.Status = model.SheetSkipped
			st.result.Sheets = append(st.result.Sheets, summary)
			st.result.SkippedSheets = append(st.result.SkippedSheets, sh.SheetName)
			log.Warn("sheet not found in workbook, skipped", "sheet", sh.SheetName)
			c.progress(st, "warning", fmt.Sprintf("未找到工作表 \"%s\"，已跳过", sh.SheetName), summary)
			continue
		}

		for _, row := range rows {
			rec, err := c.buildRecord(ctx, st, sh, row)
			if err != nil {
				return nil, model.NewIngestError(StageSheets, model.ErrDecode, err)
			}
			if !rec.Resolved() {
				st.result.UnresolvedRiders++
			}
			records = append(records, rec)
		}

		summary.Status = model.SheetImported
		if len(rows) == 0 {
			summary.Status = model.SheetEmpty
		} else {
			st.result.SheetsProcessed++
		}
		st.result.Sheets = append(st.result.Sheets, summary)

		c.progress(st, "sheet_done", fmt.Sprintf("工作表 \"%s\" 解析完成: %d 行", sh.SheetName, len(rows)), summary)
	}

	return records, nil
}

// buildRecord 单行 → 结算记录；settlement 行附带计算结果
func (c *Coordinator) buildRecord(ctx context.Context, st *runState, sh model.SheetRule, row model.RawRow) (model.SettlementRecord, error) {
	var computed *model.ComputedFields
	if sh.DataKind == model.DataKindSettlement {
		cf := calculator.ComputeSettlement(row.Fields)
		computed = &cf
	}

	payload := make(map[string]model.CellValue, len(row.Fields)+1)
	for k, v := range row.Fields {
		payload[k] = v
	}
	payload[model.FieldRowNumber] = model.NumberCell(float64(row.RowNumber))
	raw, err := json.Marshal(payload)
	if err != nil {
		return model.SettlementRecord{}, fmt.Errorf("marshal raw data of %s row %d: %w", sh.SheetName, row.RowNumber, err)
	}

	res := c.resolver.Resolve(ctx, st.req.BranchID, row)

	rec := model.SettlementRecord{
		ID:              uuid.New().String(),
		PeriodID:        st.period.ID,
		RiderIdentifier: res.Identifier,
		SheetName:       sh.SheetName,
		DataKind:        sh.DataKind,
		RowNumber:       row.RowNumber,
		RawData:         raw,
		Amount:          calculator.RecordAmount(sh.DataKind, row.Fields, computed),
		Computed:        computed,
	}
	if res.Resolved() {
		id := res.Rider.ID
		rec.RiderID = &id
	}
	return rec, nil
}

// failPeriod 周期进入 error 状态（唯一一次状态写入）并返回错误
func (c *Coordinator) failPeriod(ctx context.Context, st *runState, log *slog.Logger, cause error) (*model.RunResult, error) {
	if ferr := c.deps.Repo.FailPeriod(context.WithoutCancel(ctx), st.period.ID, cause.Error()); ferr != nil {
		log.Error("failed to mark settlement period as error", "error", ferr)
		var ie *model.IngestError
		if errors.As(cause, &ie) {
			ie.Err = errors.Join(ie.Err, ferr)
		}
	}
	return c.abort(st, log, cause)
}

// abort 以硬错误结束本次导入
func (c *Coordinator) abort(st *runState, log *slog.Logger, err error) (*model.RunResult, error) {
	st.result.Success = false
	st.result.Error = err.Error()
	st.result.RecordsProcessed = 0
	log.Error("ingest failed", "error", err)
	return st.result, err
}

func (c *Coordinator) progress(st *runState, typ, msg string, data interface{}) {
	st.emit(ProgressEvent{
		Type:      typ,
		Message:   msg,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// sendProgress 发送进度事件
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
		// 通道已满，丢弃事件
	}
}

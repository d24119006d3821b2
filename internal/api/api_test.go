package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"ridersettle/internal/blob"
	"ridersettle/internal/importer"
	"ridersettle/internal/model"
	"ridersettle/internal/store"
)

const (
	adminToken   = "admin-token"
	managerToken = "manager-token"
	riderToken   = "rider-token"
)

type testEnv struct {
	st     *store.Store
	blobs  *blob.FileStore
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	dir := t.TempDir()

	st, err := store.New(filepath.Join(dir, "ridersettle.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := blob.NewFileStore(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatalf("init blobs: %v", err)
	}

	for token, caller := range map[string]model.Caller{
		adminToken:   {Role: model.RoleSuperAdmin},
		managerToken: {Role: model.RoleBranchManager, CompanyID: "c1", BranchID: "b1"},
		riderToken:   {Role: model.RoleRider, CompanyID: "c1", BranchID: "b1"},
	} {
		if err := st.PutToken(ctx, token, caller); err != nil {
			t.Fatalf("put token: %v", err)
		}
	}

	coord := importer.NewCoordinator(
		importer.Deps{Rules: st, Blobs: blobs, Riders: st, Repo: st},
		importer.WithLocation(time.UTC),
	)
	h := NewHandler(st, blobs, coord, time.Minute)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))

	return &testEnv{st: st, blobs: blobs, router: r}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return e.do(t, method, path, token, body, "application/json")
}

func rulePath(branch, platform string) string {
	return "/api/branches/" + branch + "/platforms/" + url.PathEscape(platform) + "/rule"
}

const feeRuleJSON = `{
	"fileNamePattern": "COUPANG_(\\d{6})\\.xlsx",
	"sheets": [{
		"sheetName": "배달료",
		"startRow": 3,
		"dataType": "fee",
		"columnMapping": [
			{"column": "a", "field": "rider_name"},
			{"column": "b", "field": "delivery_fee"}
		]
	}]
}`

func feeWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "배달료"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	_ = f.SetCellValue("배달료", "A3", "김철수")
	_ = f.SetCellValue("배달료", "B3", 3000)
	_ = f.SetCellValue("배달료", "A4", "모르는사람")
	_ = f.SetCellValue("배달료", "B4", 1500)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestStatusIsPublic(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/status", "", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", w.Code, w.Body.String())
	}
	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Initialized {
		t.Fatalf("fresh store should not be initialized")
	}
}

func TestRuleTemplates(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/rule-templates", "", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "쿠팡이츠플러스") {
		t.Fatalf("status %d body=%s", w.Code, w.Body.String())
	}
}

func TestRuleCRUD(t *testing.T) {
	env := newTestEnv(t)
	path := rulePath("b1", "쿠팡이츠플러스")

	if w := env.do(t, http.MethodGet, path, managerToken, nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing rule: status %d", w.Code)
	}

	w := env.do(t, http.MethodPut, path, managerToken, []byte(feeRuleJSON), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("put: status %d body=%s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, path, managerToken, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}
	var got model.ParsingRule
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Sheets[0].ColumnMapping[0].Column != "A" {
		t.Fatalf("column labels not normalized: %+v", got.Sheets[0].ColumnMapping)
	}

	if w := env.do(t, http.MethodDelete, path, managerToken, nil, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, path, managerToken, nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: status %d", w.Code)
	}
}

func TestPutRuleRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)
	bad := strings.Replace(feeRuleJSON, `"startRow": 3`, `"startRow": 0`, 1)
	w := env.do(t, http.MethodPut, rulePath("b1", "p"), managerToken, []byte(bad), "application/json")
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "startRow") {
		t.Fatalf("status %d body=%s", w.Code, w.Body.String())
	}
}

func TestAuthorization(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name  string
		token string
		path  string
		want  int
	}{
		{"no token", "", rulePath("b1", "p"), http.StatusUnauthorized},
		{"unknown token", "nope", rulePath("b1", "p"), http.StatusUnauthorized},
		{"rider role", riderToken, rulePath("b1", "p"), http.StatusForbidden},
		{"other branch", managerToken, rulePath("b2", "p"), http.StatusForbidden},
		{"admin any branch", adminToken, rulePath("b2", "p"), http.StatusNotFound},
	}
	for _, tc := range cases {
		w := env.do(t, http.MethodGet, tc.path, tc.token, nil, "")
		if w.Code != tc.want {
			t.Fatalf("%s: status %d, want %d (body=%s)", tc.name, w.Code, tc.want, w.Body.String())
		}
	}
}

func TestUploadAndIngest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if w := env.do(t, http.MethodPut, rulePath("b1", "쿠팡이츠플러스"), managerToken, []byte(feeRuleJSON), "application/json"); w.Code != http.StatusOK {
		t.Fatalf("put rule: %d %s", w.Code, w.Body.String())
	}
	if err := env.st.UpsertRider(ctx, &model.Rider{ID: "rider-kim", BranchID: "b1", Name: "김철수"}); err != nil {
		t.Fatalf("upsert rider: %v", err)
	}

	// 上传
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("branchId", "b1")
	fw, err := mw.CreateFormFile("file", "COUPANG_240115.xlsx")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write(feeWorkbook(t))
	_ = mw.Close()

	w := env.do(t, http.MethodPost, "/api/uploads", managerToken, body.Bytes(), mw.FormDataContentType())
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: status %d body=%s", w.Code, w.Body.String())
	}
	var up UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &up); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if !strings.HasPrefix(up.FilePath, "settlements/b1/settlement_") || !strings.HasSuffix(up.FilePath, ".xlsx") {
		t.Fatalf("unexpected upload path: %s", up.FilePath)
	}

	// 导入
	w = env.doJSON(t, http.MethodPost, "/api/settlements/ingest", managerToken, map[string]string{
		"filePath":     up.FilePath,
		"fileName":     up.FileName,
		"branchId":     "b1",
		"platformName": "쿠팡이츠플러스",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("ingest: status %d body=%s", w.Code, w.Body.String())
	}
	var res model.RunResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !res.Success || res.RecordsProcessed != 2 || res.UnresolvedRiders != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !res.PeriodStart.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("period start = %v", res.PeriodStart)
	}

	// 查询
	w = env.do(t, http.MethodGet, "/api/settlements/periods?branchId=b1", managerToken, nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), res.PeriodID) {
		t.Fatalf("list periods: status %d body=%s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodGet, "/api/settlements/periods/"+res.PeriodID+"/records", managerToken, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list records: status %d", w.Code)
	}
	var recs struct {
		Records []model.SettlementRecord `json:"records"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(recs.Records) != 2 || recs.Records[0].Amount != 3000 {
		t.Fatalf("unexpected records: %+v", recs.Records)
	}

	// 其他分店经理不可见
	if err := env.st.PutToken(ctx, "other", model.Caller{Role: model.RoleBranchManager, BranchID: "b2"}); err != nil {
		t.Fatalf("put token: %v", err)
	}
	if w := env.do(t, http.MethodGet, "/api/settlements/periods/"+res.PeriodID, "other", nil, ""); w.Code != http.StatusForbidden {
		t.Fatalf("foreign period: status %d", w.Code)
	}
}

func TestIngestErrorStatusCodes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.blobs.PutBytes(ctx, "settlements/b1/broken.xlsx", []byte("garbage")); err != nil {
		t.Fatalf("put blob: %v", err)
	}

	ingest := func(filePath, platform string) *httptest.ResponseRecorder {
		return env.doJSON(t, http.MethodPost, "/api/settlements/ingest", managerToken, map[string]string{
			"filePath":     filePath,
			"branchId":     "b1",
			"platformName": platform,
		})
	}

	// 无规则
	if w := ingest("settlements/b1/broken.xlsx", "쿠팡이츠플러스"); w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"success":false`) {
		t.Fatalf("no rule: status %d body=%s", w.Code, w.Body.String())
	}

	if w := env.do(t, http.MethodPut, rulePath("b1", "쿠팡이츠플러스"), managerToken, []byte(feeRuleJSON), "application/json"); w.Code != http.StatusOK {
		t.Fatalf("put rule: %d", w.Code)
	}

	// 文件损坏
	if w := ingest("settlements/b1/broken.xlsx", "쿠팡이츠플러스"); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("decode: status %d body=%s", w.Code, w.Body.String())
	}
	// 文件不存在
	if w := ingest("settlements/b1/missing.xlsx", "쿠팡이츠플러스"); w.Code != http.StatusNotFound {
		t.Fatalf("missing blob: status %d body=%s", w.Code, w.Body.String())
	}
	// 缺少参数
	w := env.doJSON(t, http.MethodPost, "/api/settlements/ingest", managerToken, map[string]string{"branchId": "b1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad request: status %d", w.Code)
	}

	periods, err := env.st.ListPeriods(ctx, store.PeriodQueryOptions{})
	if err != nil {
		t.Fatalf("list periods: %v", err)
	}
	if len(periods) != 0 {
		t.Fatalf("failed runs left periods behind: %d", len(periods))
	}
}

func TestIngestStream(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if w := env.do(t, http.MethodPut, rulePath("b1", "쿠팡이츠플러스"), managerToken, []byte(feeRuleJSON), "application/json"); w.Code != http.StatusOK {
		t.Fatalf("put rule: %d", w.Code)
	}
	if err := env.blobs.PutBytes(ctx, "settlements/b1/COUPANG_240115.xlsx", feeWorkbook(t)); err != nil {
		t.Fatalf("put blob: %v", err)
	}

	w := env.doJSON(t, http.MethodPost, "/api/settlements/ingest/stream", managerToken, map[string]string{
		"filePath":     "settlements/b1/COUPANG_240115.xlsx",
		"branchId":     "b1",
		"platformName": "쿠팡이츠플러스",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content-type = %s", ct)
	}

	var last importer.ProgressEvent
	for _, chunk := range strings.Split(strings.TrimSpace(w.Body.String()), "\n\n") {
		payload := strings.TrimPrefix(chunk, "data: ")
		if err := json.Unmarshal([]byte(payload), &last); err != nil {
			t.Fatalf("decode event %q: %v", payload, err)
		}
	}
	if last.Type != "done" {
		t.Fatalf("last event = %s (%s)", last.Type, last.Message)
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{model.NewIngestError("load_rule", model.ErrRuleNotFound, errors.New("x")), http.StatusNotFound},
		{model.NewIngestError("persist", model.ErrPersistence, model.ErrNotFound), http.StatusInternalServerError},
		{model.NewIngestError("decode", model.ErrDecode, nil), http.StatusUnprocessableEntity},
		{&model.InvalidRuleError{Path: "sheets", Reason: "empty"}, http.StatusBadRequest},
		{model.ErrForbidden, http.StatusForbidden},
		{model.ErrUnauthenticated, http.StatusUnauthorized},
		{model.NewIngestError("fetch", model.ErrUnavailable, errors.New("io")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

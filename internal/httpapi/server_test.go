package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"autoedit/internal/imageutil"
	"autoedit/internal/lifecycle"
	"autoedit/internal/pipeline"
	"autoedit/internal/stage"
	"autoedit/pkg/types"
)

type fakeService struct {
	out     pipeline.Outcome
	err     error
	history []types.HistoryEntry
	status  types.StatusResponse
	ready   bool

	lastReq    types.EditRequest
	lastRefine string
	lastMode   types.Mode
}

func (f *fakeService) Edit(ctx context.Context, req types.EditRequest) (pipeline.Outcome, error) {
	f.lastReq = req
	return f.out, f.err
}

func (f *fakeService) Refine(ctx context.Context, prompt string, mode types.Mode) (pipeline.Outcome, error) {
	f.lastRefine = prompt
	f.lastMode = mode
	return f.out, f.err
}

func (f *fakeService) History() []types.HistoryEntry { return f.history }
func (f *fakeService) Status() types.StatusResponse  { return f.status }
func (f *fakeService) Ready() bool                   { return f.ready }

func smallPNG(t *testing.T) []byte {
	t.Helper()
	b, err := imageutil.EncodePNG(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return b
}

func editBody(t *testing.T, img []byte, prompt, mode string) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(types.EditRequestBody{
		Image:  base64.StdEncoding.EncodeToString(img),
		Prompt: prompt,
		Mode:   mode,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func postJSON(mux http.Handler, path string, body *bytes.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestEditHappyPath(t *testing.T) {
	img := smallPNG(t)
	svc := &fakeService{out: pipeline.Outcome{
		Result: types.EditResult{
			OutputImage:        img,
			UserBrief:          "make it vintage",
			TranslationInsight: types.DirectiveSet{"a", "b"},
			AppliedPrompt:      "a, b",
		},
		Steps:    []types.StepResult{{Name: "Apply edit", Status: types.StepComplete}},
		Duration: 1500 * time.Millisecond,
	}}
	mux := NewMux(svc, nil)

	rr := postJSON(mux, "/edit", editBody(t, img, "make it vintage", "casual"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	var resp types.EditResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.AppliedPrompt != "a, b" || resp.UserBrief != "make it vintage" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.DurationSeconds != 1.5 {
		t.Fatalf("duration %v", resp.DurationSeconds)
	}
	decoded, err := base64.StdEncoding.DecodeString(resp.Image)
	if err != nil || !bytes.Equal(decoded, img) {
		t.Fatalf("image roundtrip failed: %v", err)
	}
	if svc.lastReq.Mode != types.ModeCasual || svc.lastReq.Prompt != "make it vintage" {
		t.Fatalf("service saw %+v", svc.lastReq)
	}
}

func TestEditDefaultsToCasualMode(t *testing.T) {
	svc := &fakeService{out: pipeline.Outcome{Result: types.EditResult{OutputImage: smallPNG(t)}}}
	mux := NewMux(svc, nil)
	rr := postJSON(mux, "/edit", editBody(t, smallPNG(t), "x", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if svc.lastReq.Mode != types.ModeCasual {
		t.Fatalf("mode %q", svc.lastReq.Mode)
	}
}

func TestEditRejectsWrongContentType(t *testing.T) {
	mux := NewMux(&fakeService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/edit", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestEditRejectsBadJSONAndBadBase64(t *testing.T) {
	mux := NewMux(&fakeService{}, nil)
	rr := postJSON(mux, "/edit", bytes.NewReader([]byte("{not json")))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad json status %d", rr.Code)
	}
	b, _ := json.Marshal(types.EditRequestBody{Image: "!!not-base64!!", Prompt: "x"})
	rr = postJSON(mux, "/edit", bytes.NewReader(b))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad base64 status %d", rr.Code)
	}
}

func TestEditAcceptsDataURL(t *testing.T) {
	img := smallPNG(t)
	svc := &fakeService{out: pipeline.Outcome{Result: types.EditResult{OutputImage: img}}}
	mux := NewMux(svc, nil)
	b, _ := json.Marshal(types.EditRequestBody{
		Image:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
		Prompt: "x",
		Mode:   "professional",
	})
	rr := postJSON(mux, "/edit", bytes.NewReader(b))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	if !bytes.Equal(svc.lastReq.SourceImage, img) {
		t.Fatalf("data URL not decoded")
	}
}

func TestEditAcceptsMultipartForm(t *testing.T) {
	img := smallPNG(t)
	svc := &fakeService{out: pipeline.Outcome{Result: types.EditResult{OutputImage: img}}}
	mux := NewMux(svc, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "in.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(img); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.WriteField("prompt", "make it vintage")
	mw.WriteField("mode", "professional")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/edit", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	if !bytes.Equal(svc.lastReq.SourceImage, img) {
		t.Fatalf("multipart image not passed through")
	}
	if svc.lastReq.Prompt != "make it vintage" || svc.lastReq.Mode != types.ModeProfessional {
		t.Fatalf("unexpected request %q %q", svc.lastReq.Prompt, svc.lastReq.Mode)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		status    int
		wantStage string
	}{
		{"invalid", pipeline.ErrInvalidRequest("prompt is required"), http.StatusBadRequest, ""},
		{"busy", pipeline.ErrBusy(), http.StatusTooManyRequests, ""},
		{"model unavailable", lifecycle.ErrModelUnavailable(types.StageTranslation, "load failed"), http.StatusServiceUnavailable, "translation"},
		{"oom", lifecycle.ErrOutOfMemory(types.StageEdit, "budget exceeded"), http.StatusInsufficientStorage, "edit"},
		{"translation failed", stage.ErrTranslationFailed("no directives"), http.StatusBadGateway, "translation"},
		{"edit failed", stage.ErrEditFailed("render fault"), http.StatusBadGateway, "edit"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := NewMux(&fakeService{err: tc.err}, nil)
			rr := postJSON(mux, "/edit", editBody(t, smallPNG(t), "x", "professional"))
			if rr.Code != tc.status {
				t.Fatalf("status %d want %d body %s", rr.Code, tc.status, rr.Body.String())
			}
			var er types.ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &er); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if er.Stage != tc.wantStage {
				t.Fatalf("stage %q want %q", er.Stage, tc.wantStage)
			}
			if er.Code != tc.status {
				t.Fatalf("code %d want %d", er.Code, tc.status)
			}
		})
	}
}

func TestRefineWithoutHistoryIsConflict(t *testing.T) {
	mux := NewMux(&fakeService{err: pipeline.ErrNoHistory()}, nil)
	b, _ := json.Marshal(types.RefineRequestBody{Prompt: "more", Mode: "professional"})
	rr := postJSON(mux, "/refine", bytes.NewReader(b))
	if rr.Code != http.StatusConflict {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestRefinePassesPromptAndMode(t *testing.T) {
	svc := &fakeService{out: pipeline.Outcome{Result: types.EditResult{OutputImage: smallPNG(t)}}}
	mux := NewMux(svc, nil)
	b, _ := json.Marshal(types.RefineRequestBody{Prompt: "add grain", Mode: "professional"})
	rr := postJSON(mux, "/refine", bytes.NewReader(b))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	if svc.lastRefine != "add grain" || svc.lastMode != types.ModeProfessional {
		t.Fatalf("refine saw %q %q", svc.lastRefine, svc.lastMode)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	img := smallPNG(t)
	svc := &fakeService{history: []types.HistoryEntry{{
		CreatedAt: time.Unix(1700000000, 0),
		Request:   types.EditRequest{Prompt: "warm it up", Mode: types.ModeCasual},
		Result:    types.EditResult{OutputImage: img, AppliedPrompt: "a, b"},
	}}}
	mux := NewMux(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var resp types.HistoryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].UserBrief != "warm it up" || resp.Entries[0].Image != "" {
		t.Fatalf("unexpected history %+v", resp.Entries)
	}

	// With images=1 the entry carries the encoded output.
	req = httptest.NewRequest(http.MethodGet, "/history?images=1", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Entries[0].Image == "" {
		t.Fatalf("expected image payload with images=1")
	}
}

func TestStatusAndProbes(t *testing.T) {
	svc := &fakeService{status: types.StatusResponse{BudgetMB: 12000, MarginMB: 512}, ready: false}
	mux := NewMux(svc, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))
	var st types.StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil || st.BudgetMB != 12000 {
		t.Fatalf("status body %s err %v", rr.Body.String(), err)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz while loading %d", rr.Code)
	}
	svc.ready = true
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz when ready %d", rr.Code)
	}
}

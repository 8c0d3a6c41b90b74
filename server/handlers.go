package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sgd-gov/despacho-service/audit"
	"github.com/sgd-gov/despacho-service/repository"
	"github.com/sgd-gov/despacho-service/repository/models"
	"github.com/sgd-gov/despacho-service/workflow"
)

// dispatchView pairs the stored dispatch with its derived workflow snapshot
// so clients never recompute the projection themselves.
type dispatchView struct {
	Dispatch *models.Dispatch  `json:"dispatch"`
	Workflow workflow.Snapshot `json:"workflow"`
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(ws.startTime).String(),
	})
}

func (ws *WebServer) handleCreateDispatch(w http.ResponseWriter, r *http.Request) {
	var input repository.CreateDispatchInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	dispatch, repoErr := ws.store.CreateDispatch(r.Context(), input)
	if repoErr != nil {
		writeRepoError(w, repoErr)
		return
	}

	ws.recordAudit(audit.Event{
		DispatchID: dispatch.ID,
		ActorID:    dispatch.CreatorID,
		Action:     audit.ActionDispatchCreated,
		Detail:     fmt.Sprintf("dispatch %s created", dispatch.Number),
	})
	writeJSON(w, http.StatusCreated, dispatch)
}

func (ws *WebServer) handleGetDispatch(w http.ResponseWriter, r *http.Request) {
	dispatchID := chi.URLParam(r, "dispatchID")
	dispatch, repoErr := ws.store.GetDispatch(r.Context(), dispatchID)
	if repoErr != nil {
		writeRepoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, dispatchView{
		Dispatch: dispatch,
		Workflow: workflow.Project(dispatch.Approvals, dispatch.Signatures),
	})
}

func (ws *WebServer) handleListDispatches(w http.ResponseWriter, r *http.Request) {
	filter := repository.DispatchFilter{
		Status:          r.URL.Query().Get("status"),
		DispatchType:    r.URL.Query().Get("type"),
		OriginUnitID:    r.URL.Query().Get("unit"),
		IncludeArchived: r.URL.Query().Get("archived") == "true",
	}
	dispatches, repoErr := ws.store.ListDispatches(r.Context(), filter)
	if repoErr != nil {
		writeRepoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dispatches": dispatches,
		"count":      len(dispatches),
	})
}

func (ws *WebServer) handleEmitDispatch(w http.ResponseWriter, r *http.Request) {
	ws.handleTransition(w, r, ws.store.EmitDispatch, audit.ActionDispatchEmitted)
}

func (ws *WebServer) handleCompleteDispatch(w http.ResponseWriter, r *http.Request) {
	ws.handleTransition(w, r, ws.store.CompleteDispatch, audit.ActionDispatchCompleted)
}

func (ws *WebServer) handleCancelDispatch(w http.ResponseWriter, r *http.Request) {
	ws.handleTransition(w, r, ws.store.CancelDispatch, audit.ActionDispatchCancelled)
}

func (ws *WebServer) handleTransition(
	w http.ResponseWriter,
	r *http.Request,
	transition func(ctx context.Context, id string) (*models.Dispatch, *repository.RepositoryError),
	action string,
) {
	dispatchID := chi.URLParam(r, "dispatchID")
	dispatch, repoErr := transition(r.Context(), dispatchID)
	if repoErr != nil {
		writeRepoError(w, repoErr)
		return
	}
	ws.recordAudit(audit.Event{
		DispatchID: dispatch.ID,
		ActorID:    r.Header.Get("X-Actor-ID"),
		Action:     action,
		Detail:     fmt.Sprintf("status is now %s", dispatch.Status),
	})
	writeJSON(w, http.StatusOK, dispatch)
}

func (ws *WebServer) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	dispatchID := chi.URLParam(r, "dispatchID")
	approvals, repoErr := ws.store.ListDispatchApprovals(r.Context(), dispatchID)
	if repoErr != nil {
		writeRepoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"approvals": approvals,
		"count":     len(approvals),
	})
}

func (ws *WebServer) handleAddApprover(w http.ResponseWriter, r *http.Request) {
	dispatchID := chi.URLParam(r, "dispatchID")
	var body struct {
		ApproverID string `json:"approver_id"`
		Order      int    `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		JSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	approval, repoErr := ws.store.AddApprover(r.Context(), dispatchID, body.ApproverID, body.Order)
	if repoErr != nil {
		writeRepoError(w, repoErr)
		return
	}

	ws.recordAudit(audit.Event{
		DispatchID: dispatchID,
		ActorID:    r.Header.Get("X-Actor-ID"),
		Action:     audit.ActionApproverAdded,
		Detail:     fmt.Sprintf("approver %s added at order %d", body.ApproverID, body.Order),
	})
	writeJSON(w, http.StatusCreated, approval)
}

func (ws *WebServer) handleRemoveApprover(w http.ResponseWriter, r *http.Request) {
	approvalID := chi.URLParam(r, "approvalID")
	approval, repoErr := ws.store.RemoveApprover(r.Context(), approvalID)
	if repoErr != nil {
		writeRepoError(w, repoErr)
		return
	}
	ws.recordAudit(audit.Event{
		DispatchID: approval.DispatchID,
		ActorID:    r.Header.Get("X-Actor-ID"),
		Action:     audit.ActionApproverRemoved,
		Detail:     fmt.Sprintf("approval %s removed", approvalID),
	})
	writeJSON(w, http.StatusOK, approval)
}

func (ws *WebServer) handleRecordDecision(w http.ResponseWriter, r *http.Request) {
	approvalID := chi.URLParam(r, "approvalID")
	var input repository.DecisionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	input.ApprovalID = approvalID

	approval, repoErr := ws.store.RecordDecision(r.Context(), input)
	if repoErr != nil {
		writeRepoError(w, repoErr)
		return
	}

	actor := r.Header.Get("X-Actor-ID")
	if actor == "" && approval.ApproverID != nil {
		actor = *approval.ApproverID
	}
	ws.recordAudit(audit.Event{
		DispatchID: approval.DispatchID,
		ActorID:    actor,
		Action:     audit.ActionDecisionRecorded,
		Detail:     fmt.Sprintf("approval %s decided as %s", approvalID, approval.Status),
	})
	writeJSON(w, http.StatusOK, approval)
}

func (ws *WebServer) handleBulkDecide(w http.ResponseWriter, r *http.Request) {
	var input repository.BulkDecisionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	affected, repoErr := ws.store.BulkDecide(r.Context(), input)
	if repoErr != nil {
		writeRepoError(w, repoErr)
		return
	}

	ws.recordAudit(audit.Event{
		ActorID: r.Header.Get("X-Actor-ID"),
		Action:  audit.ActionBulkDecision,
		Detail:  fmt.Sprintf("%d of %d approvals decided as %s", affected, len(input.ApprovalIDs), input.Status),
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"affected":  affected,
		"requested": len(input.ApprovalIDs),
	})
}

func (ws *WebServer) handlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	approverID := r.URL.Query().Get("approver")
	approvals, repoErr := ws.store.ListPendingApprovals(r.Context(), approverID)
	if repoErr != nil {
		writeRepoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"approvals": approvals,
		"count":     len(approvals),
	})
}

func (ws *WebServer) handlePendingCount(w http.ResponseWriter, r *http.Request) {
	approverID := r.URL.Query().Get("approver")
	count, repoErr := ws.store.CountPendingApprovals(r.Context(), approverID)
	if repoErr != nil {
		writeRepoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (ws *WebServer) handleSignDispatch(w http.ResponseWriter, r *http.Request) {
	dispatchID := chi.URLParam(r, "dispatchID")
	var input repository.SignatureInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	input.DispatchID = dispatchID
	input.IPAddress = r.RemoteAddr
	if input.DeviceInfo == "" {
		input.DeviceInfo = r.UserAgent()
	}

	signature, repoErr := ws.store.SignDispatch(r.Context(), input)
	if repoErr != nil {
		writeRepoError(w, repoErr)
		return
	}

	ws.recordAudit(audit.Event{
		DispatchID: dispatchID,
		ActorID:    input.SignerID,
		Action:     audit.ActionDispatchSigned,
		Detail:     fmt.Sprintf("signature type %s", input.SignatureType),
	})
	writeJSON(w, http.StatusCreated, signature)
}

func (ws *WebServer) handleListSignatures(w http.ResponseWriter, r *http.Request) {
	dispatchID := chi.URLParam(r, "dispatchID")
	signatures, repoErr := ws.store.ListDispatchSignatures(r.Context(), dispatchID)
	if repoErr != nil {
		writeRepoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"signatures": signatures,
		"signed":     workflow.Signed(signatures),
		"count":      len(signatures),
	})
}

func (ws *WebServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, repoErr := ws.store.DispatchSummary(r.Context())
	if repoErr != nil {
		writeRepoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (ws *WebServer) handleRetentionDue(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			JSONError(w, "Invalid as_of timestamp: "+err.Error(), http.StatusBadRequest)
			return
		}
		asOf = parsed
	}

	dispatches, repoErr := ws.store.ListRetentionDue(r.Context(), asOf)
	if repoErr != nil {
		writeRepoError(w, repoErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dispatches": dispatches,
		"count":      len(dispatches),
		"as_of":      asOf,
	})
}

// maxAuditLimit caps how many recent events one request may ask for.
const maxAuditLimit = 500

func (ws *WebServer) handleRecentAudit(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			JSONError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		if parsed > maxAuditLimit {
			parsed = maxAuditLimit
		}
		limit = parsed
	}

	events, err := ws.audit.Recent(limit)
	if err != nil {
		JSONError(w, "Failed to read audit log: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

func (ws *WebServer) handleDispatchAudit(w http.ResponseWriter, r *http.Request) {
	dispatchID := chi.URLParam(r, "dispatchID")
	events, err := ws.audit.ForDispatch(dispatchID)
	if err != nil {
		JSONError(w, "Failed to read audit log: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// recordAudit appends the event, logging but not failing the request when
// the audit store has trouble.
func (ws *WebServer) recordAudit(ev audit.Event) {
	if ws.audit == nil {
		return
	}
	if err := ws.audit.Append(ev); err != nil {
		ws.logger.Warn("failed to append audit event", zap.String("action", ev.Action), zap.Error(err))
	}
}

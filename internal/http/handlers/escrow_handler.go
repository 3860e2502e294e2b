package handlers

import (
	"errors"

	"github.com/Mokete-tech/spaan-backend/internal/apperror"
	"github.com/Mokete-tech/spaan-backend/internal/http/dto"
	"github.com/Mokete-tech/spaan-backend/internal/middleware"
	"github.com/Mokete-tech/spaan-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EscrowHandler struct {
	escrowService *services.EscrowService
	log           *zap.Logger
}

func NewEscrowHandler(escrowService *services.EscrowService, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService, log: log}
}

func (h *EscrowHandler) StartEscrow(c *fiber.Ctx) error {
	var req dto.StartEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	actor := actorFrom(c)
	result, err := h.escrowService.StartEscrow(c.Context(), actor, services.StartEscrowInput{
		ServiceID:   req.ServiceID,
		ProviderID:  req.ProviderID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Method:      req.Method,
		Description: req.Description,
		BuyerEmail:  req.BuyerEmail,
		Details:     req.Details,
	})
	if err != nil {
		return h.writeError(c, err)
	}

	resp := dto.StartEscrowResponse{
		Success:      true,
		RedirectURL:  result.RedirectURL,
		ClientSecret: result.ClientSecret,
	}
	if result.Transaction != nil {
		resp.TransactionID = result.Transaction.ID.String()
		resp.Status = result.Transaction.Status
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *EscrowHandler) ReleaseEscrow(c *fiber.Ctx) error {
	var req dto.ReleaseEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	id, err := uuid.Parse(req.TransactionID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid transaction_id"})
	}

	txn, err := h.escrowService.Release(c.Context(), actorFrom(c), id)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(dto.EscrowStatusResponse{
		Success:       true,
		TransactionID: txn.ID.String(),
		Status:        txn.Status,
	})
}

func (h *EscrowHandler) RefundEscrow(c *fiber.Ctx) error {
	var req dto.RefundEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	id, err := uuid.Parse(req.TransactionID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid transaction_id"})
	}

	txn, err := h.escrowService.Refund(c.Context(), actorFrom(c), id, req.Reason)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(dto.EscrowStatusResponse{
		Success:       true,
		TransactionID: txn.ID.String(),
		Status:        txn.Status,
	})
}

func (h *EscrowHandler) GetTransaction(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid transaction id"})
	}

	txn, err := h.escrowService.GetTransaction(c.Context(), actorFrom(c), id)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: txn})
}

func (h *EscrowHandler) GetTransactionEvents(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid transaction id"})
	}

	entries, err := h.escrowService.GetTransactionEvents(c.Context(), actorFrom(c), id)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

// writeError maps the error taxonomy to HTTP. Internal detail stays in
// the log; the caller gets the code and the safe message only.
func (h *EscrowHandler) writeError(c *fiber.Ctx, err error) error {
	status := apperror.HTTPStatusOf(err)
	if status >= fiber.StatusInternalServerError {
		h.log.Error("escrow request failed",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	var appErr *apperror.AppError
	code := ""
	if errors.As(err, &appErr) {
		code = string(appErr.Code)
	}
	return c.Status(status).JSON(dto.ErrorResponse{
		Error: apperror.UserMessage(err),
		Code:  code,
	})
}

func actorFrom(c *fiber.Ctx) services.Actor {
	return services.Actor{
		ID:   middleware.GetUserID(c),
		Role: middleware.GetRole(c),
	}
}

package response

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/studylane/agency-api/utils/apperrors"
)

func TestCalculatePagination(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		total      int64
		wantPage   int
		wantLimit  int
		wantPages  int
	}{
		{"exact pages", 1, 10, 100, 1, 10, 10},
		{"partial last page", 2, 10, 95, 2, 10, 10},
		{"empty result", 1, 10, 0, 1, 10, 0},
		{"single item", 1, 10, 1, 1, 10, 1},
		{"zero page defaults to 1", 0, 10, 50, 1, 10, 5},
		{"negative page defaults to 1", -3, 10, 50, 1, 10, 5},
		{"zero limit defaults to 10", 1, 0, 50, 1, 10, 5},
		{"limit capped at 100", 1, 500, 1000, 1, 100, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := CalculatePagination(tt.page, tt.limit, tt.total)
			if meta.CurrentPage != tt.wantPage {
				t.Errorf("CurrentPage = %d, want %d", meta.CurrentPage, tt.wantPage)
			}
			if meta.PerPage != tt.wantLimit {
				t.Errorf("PerPage = %d, want %d", meta.PerPage, tt.wantLimit)
			}
			if meta.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", meta.TotalPages, tt.wantPages)
			}
			if meta.Total != tt.total {
				t.Errorf("Total = %d, want %d", meta.Total, tt.total)
			}
		})
	}
}

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind apperrors.Kind
		want int
	}{
		{apperrors.KindValidation, fiber.StatusUnprocessableEntity},
		{apperrors.KindNotFound, fiber.StatusNotFound},
		{apperrors.KindConflict, fiber.StatusConflict},
		{apperrors.KindDependency, fiber.StatusServiceUnavailable},
		{apperrors.KindStorage, fiber.StatusInternalServerError},
		{apperrors.Kind("SOMETHING_ELSE"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusForKind(tt.kind); got != tt.want {
			t.Errorf("StatusForKind(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

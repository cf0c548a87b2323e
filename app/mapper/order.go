package mapper

import (
	"net/url"
	"time"

	"github.com/ihavelanded/ms-go-esim/app/entity"
	"github.com/ihavelanded/ms-go-esim/app/types"
)

const qrCodeEndpoint = "https://api.qrserver.com/v1/create-qr-code/"

func OrderToResponse(item *entity.Order) *types.ProvisioningOutcome {
	if item == nil {
		return nil
	}

	activationCode := derefString(item.ActivationCode)

	return &types.ProvisioningOutcome{
		ID:             item.SessionID,
		Email:          item.Email,
		Status:         item.Status,
		ICCID:          derefString(item.ICCID),
		ActivationCode: activationCode,
		OrderNo:        derefString(item.CarrierOrderNo),
		Message:        derefString(item.Message),
		QRCode:         qrCodeURL(activationCode),
		Total:          float64(item.AmountTotalCents) / 100,
		Currency:       item.Currency,
		CreatedAt:      item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func OrdersToResponse(items []*entity.Order) []*types.ProvisioningOutcome {
	result := make([]*types.ProvisioningOutcome, 0, len(items))
	for _, item := range items {
		result = append(result, OrderToResponse(item))
	}
	return result
}

// qrCodeURL renders the LPA activation string as a scannable QR image. The
// provisioning sentinels are not installable, so they get no QR code.
func qrCodeURL(activationCode string) string {
	switch activationCode {
	case "", entity.ActivationCodePending, entity.ActivationCodeDelayed:
		return ""
	}
	return qrCodeEndpoint + "?size=300x300&data=" + url.QueryEscape(activationCode)
}

func AccountToResponse(item *entity.Account) *types.AccountResponse {
	if item == nil {
		return nil
	}

	return &types.AccountResponse{
		Email:     item.Email,
		CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

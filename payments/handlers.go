package payments

import (
	"net/http"

	"recipehub/utils"
	"recipehub/validation"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// Checkout handles POST /payments/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in CheckoutInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := validation.Struct(&in); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	session, err := h.client.CreateCheckoutSession(r.Context(), utils.GetUserIDFromRequest(r), in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.SendResponse(w, http.StatusOK, session, "Checkout session created successfully")
}

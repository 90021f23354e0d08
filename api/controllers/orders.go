package controllers

import (
	"net/http"

	"github.com/angelmondragon/raamul-storefront/api/responses"
	"github.com/angelmondragon/raamul-storefront/internal/orders"
	"github.com/angelmondragon/raamul-storefront/internal/sandbox"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	"github.com/angelmondragon/raamul-storefront/pkg/validators"
)

type orderPayload struct {
	Message string        `json:"message,omitempty"`
	Order   *orders.Order `json:"order"`
}

// OrderCreate places an order for the signed-in customer.
func OrderCreate(b *sandbox.Backend, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req orders.CreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := b.CreateOrder(r.Context(), actorFrom(r), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusCreated, orderPayload{Message: "Order created successfully", Order: order})
	}
}

// OrderList pages through all orders for admins and through their own for customers.
func OrderList(b *sandbox.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFrom(r)
		customerID := ""
		if !actor.IsAdmin() {
			customerID = actor.UserID
		}
		responses.WriteSuccess(w, b.ListOrders(r.Context(), orderFilters(r), customerID))
	}
}

func OrdersForCustomer(b *sandbox.Backend, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := pathParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor := actorFrom(r)
		if !actor.IsAdmin() && actor.UserID != customerID {
			responses.WriteError(r.Context(), logg, w, errAccessDenied())
			return
		}
		responses.WriteSuccess(w, b.ListOrders(r.Context(), orderFilters(r), customerID))
	}
}

func OrderDetail(b *sandbox.Backend, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := b.Order(r.Context(), actorFrom(r), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderPayload{Order: order})
	}
}

func OrderByOrderID(b *sandbox.Backend, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := b.OrderByOrderID(r.Context(), actorFrom(r), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderPayload{Order: order})
	}
}

func OrderUpdate(b *sandbox.Backend, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req orders.UpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := b.UpdateOrder(r.Context(), actorFrom(r), id, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderPayload{Message: "Order updated successfully", Order: order})
	}
}

func OrderDelete(b *sandbox.Backend, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := b.DeleteOrder(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Order deleted successfully")
	}
}

func orderFilters(r *http.Request) orders.ListFilters {
	return orders.ListFilters{
		Params: pageParams(r),
		Status: queryValue(r, "status"),
		Search: queryValue(r, "search"),
	}
}

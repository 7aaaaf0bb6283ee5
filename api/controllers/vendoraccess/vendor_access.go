package vendoraccess

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nmviana/vendimia-backend/api/middleware"
	"github.com/nmviana/vendimia-backend/pkg/enums"
	pkgerrors "github.com/nmviana/vendimia-backend/pkg/errors"
)

// ResolveVendorID extracts the vendor path parameter and enforces scope:
// admins may address any vendor, vendor tokens only their own.
func ResolveVendorID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "vendorId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id")
	}

	ctx := r.Context()
	switch middleware.RoleFromContext(ctx) {
	case string(enums.ActorRoleAdmin), string(enums.ActorRoleSystem):
		return id, nil
	case string(enums.ActorRoleVendor):
		if middleware.VendorIDFromContext(ctx) != id.String() {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor scope mismatch")
		}
		return id, nil
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor access required")
}

// IsAdmin reports whether the caller holds the admin role.
func IsAdmin(r *http.Request) bool {
	return middleware.RoleFromContext(r.Context()) == string(enums.ActorRoleAdmin)
}

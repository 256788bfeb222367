package handlers

// AppHandlers groups every HTTP handler for route registration.
type AppHandlers struct {
	AuthHandler       *AuthHandler
	CatalogHandler    *CatalogHandler
	EnrollmentHandler *EnrollmentHandler
}

package services

// Service errors. Validation messages are surfaced to the entry form verbatim.
var (
	ErrNoActiveSession   = &ServiceError{Message: "no active floor session"}
	ErrSessionSubmitted  = &ServiceError{Message: "session has already been submitted"}
	ErrNoItems           = &ServiceError{Message: "Please add at least one item"}
	ErrItemNotFound      = &ServiceError{Message: "Item not found"}
	ErrStockItemTypeReq  = &ServiceError{Message: "Stock type and item type are required"}
	ErrCategoryRequired  = &ServiceError{Message: "Category is required"}
	ErrUnlistedNameReq   = &ServiceError{Message: "Please enter unlisted item name"}
	ErrOtherFieldsReq    = &ServiceError{Message: "Custom item name, UOM and units are required for Other items"}
	ErrAllFieldsRequired = &ServiceError{Message: "All fields are required"}
	ErrUOMUnitsRequired  = &ServiceError{Message: "UOM and units are required"}
	ErrUOMUnitsInvalid   = &ServiceError{Message: "UOM and units must be valid positive numbers (decimals allowed, e.g., 450.25)"}
	ErrQuantityInvalid   = &ServiceError{Message: "Please enter a valid quantity (decimals allowed, e.g., 450.25)"}
	ErrSessionFieldsReq  = &ServiceError{Message: "Warehouse, floor name and authority are required"}
)

// ServiceError represents a service-level error
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

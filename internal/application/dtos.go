package application

import "time"

// ShipmentDTO represents a shipment in responses
type ShipmentDTO struct {
	ShipmentID         string            `json:"shipmentId"`
	Supplier           string            `json:"supplier"`
	OrderRef           string            `json:"orderRef"`
	ProductName        string            `json:"productName"`
	WeekNumber         int               `json:"weekNumber"`
	Quantity           float64           `json:"quantity"`
	PalletQty          int               `json:"palletQty"`
	ReceivingWarehouse string            `json:"receivingWarehouse"`
	ForwardingAgent    string            `json:"forwardingAgent,omitempty"`
	Incoterm           string            `json:"incoterm"`
	VesselName         string            `json:"vesselName,omitempty"`
	LatestStatus       string            `json:"latestStatus"`
	EstimatedDeparture *time.Time        `json:"estimatedDeparture,omitempty"`
	EstimatedArrival   *time.Time        `json:"estimatedArrival,omitempty"`
	ActualArrival      *time.Time        `json:"actualArrival,omitempty"`
	StatusHistory      []StatusChangeDTO `json:"statusHistory"`
	Notes              string            `json:"notes,omitempty"`
	Archived           bool              `json:"archived"`
	ArchivedAt         *time.Time        `json:"archivedAt,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// StatusChangeDTO represents a status history entry in responses
type StatusChangeDTO struct {
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	ChangedAt time.Time `json:"changedAt"`
}

// BulkFailure describes one failed item of a bulk operation
type BulkFailure struct {
	ShipmentID string `json:"shipmentId"`
	Error      string `json:"error"`
}

// BulkResult tallies the outcome of a bulk operation. Partial failure is
// not an HTTP error; the loop continues and tallies.
type BulkResult struct {
	SuccessCount int           `json:"successCount"`
	FailCount    int           `json:"failCount"`
	Failures     []BulkFailure `json:"failures"`
}

// PreferencesDTO represents notification preferences in responses
type PreferencesDTO struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email,omitempty"`
	WebhookURL  string    `json:"webhookUrl,omitempty"`
	OnArrival   bool      `json:"onArrival"`
	OnDelay     bool      `json:"onDelay"`
	OnStored    bool      `json:"onStored"`
	OnCancelled bool      `json:"onCancelled"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DeliveryDTO represents a notification delivery record in responses
type DeliveryDTO struct {
	DeliveryID string    `json:"deliveryId"`
	UserID     string    `json:"userId"`
	EventType  string    `json:"eventType"`
	Subject    string    `json:"subject"`
	Message    string    `json:"message"`
	Channel    string    `json:"channel"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	SentAt     time.Time `json:"sentAt"`
}

// ReportGroup is one aggregation bucket of a shipment report
type ReportGroup struct {
	Key           string  `json:"key"`
	ShipmentCount int     `json:"shipmentCount"`
	TotalQuantity float64 `json:"totalQuantity"`
	TotalPallets  int     `json:"totalPallets"`
	Share         float64 `json:"share"`
}

// ReportStats holds the derived statistics of a shipment report
type ReportStats struct {
	TotalShipments   int     `json:"totalShipments"`
	TotalQuantity    float64 `json:"totalQuantity"`
	TotalPallets     int     `json:"totalPallets"`
	InTransit        int     `json:"inTransit"`
	ArrivedNotStored int     `json:"arrivedNotStored"`
	Delayed          int     `json:"delayed"`
	Stored           int     `json:"stored"`
	Cancelled        int     `json:"cancelled"`
	LateArrivals     int     `json:"lateArrivals"`
	AvgTransitDays   float64 `json:"avgTransitDays"`
}

// ReportFilterDTO echoes the applied filter back in the report
type ReportFilterDTO struct {
	Statuses         []string   `json:"statuses,omitempty"`
	Suppliers        []string   `json:"suppliers,omitempty"`
	Warehouses       []string   `json:"warehouses,omitempty"`
	Incoterms        []string   `json:"incoterms,omitempty"`
	ForwardingAgents []string   `json:"forwardingAgents,omitempty"`
	WeekFrom         *int       `json:"weekFrom,omitempty"`
	WeekTo           *int       `json:"weekTo,omitempty"`
	ArrivalFrom      *time.Time `json:"arrivalFrom,omitempty"`
	ArrivalTo        *time.Time `json:"arrivalTo,omitempty"`
	Search           string     `json:"search,omitempty"`
	IncludeArchived  bool       `json:"includeArchived"`
}

// ShipmentReport is the aggregated report over the filtered shipments
type ShipmentReport struct {
	Filter      ReportFilterDTO `json:"filter"`
	GroupBy     string          `json:"groupBy"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Stats       ReportStats     `json:"stats"`
	Groups      []ReportGroup   `json:"groups"`

	// Shipments backing the report, used by document renderers
	Shipments []ShipmentDTO `json:"-"`
}

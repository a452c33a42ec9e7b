package asyncapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// EventValidator validates CloudEvents against AsyncAPI schemas.
type EventValidator struct {
	schemas    map[string]*jsonschema.Schema
	rawSchemas map[string]interface{}
	compiler   *jsonschema.Compiler
}

// CloudEvent represents the CloudEvents specification structure.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            string      `json:"time,omitempty"`
	DataContentType string      `json:"datacontenttype,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// AsyncAPISpec represents the relevant parts of an AsyncAPI specification.
type AsyncAPISpec struct {
	AsyncAPI   string                     `yaml:"asyncapi"`
	Info       AsyncAPIInfo               `yaml:"info"`
	Channels   map[string]AsyncAPIChannel `yaml:"channels"`
	Components AsyncAPIComponents         `yaml:"components"`
}

// AsyncAPIInfo contains AsyncAPI info section.
type AsyncAPIInfo struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

// AsyncAPIChannel represents a channel in AsyncAPI.
type AsyncAPIChannel struct {
	Address  string                 `yaml:"address"`
	Messages map[string]interface{} `yaml:"messages"`
}

// AsyncAPIComponents contains reusable components.
type AsyncAPIComponents struct {
	Schemas  map[string]interface{} `yaml:"schemas"`
	Messages map[string]interface{} `yaml:"messages"`
}

// NewEventValidator creates a new event validator from an AsyncAPI specification file.
func NewEventValidator(asyncAPIPath string) (*EventValidator, error) {
	data, err := os.ReadFile(asyncAPIPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read AsyncAPI spec: %w", err)
	}

	return NewEventValidatorFromBytes(data)
}

// NewEventValidatorFromBytes creates a new event validator from AsyncAPI specification bytes.
func NewEventValidatorFromBytes(specBytes []byte) (*EventValidator, error) {
	var spec AsyncAPISpec
	if err := yaml.Unmarshal(specBytes, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse AsyncAPI spec: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	schemas := make(map[string]*jsonschema.Schema)
	rawSchemas := make(map[string]interface{})

	for schemaName, schema := range spec.Components.Schemas {
		schemaMap, ok := schema.(map[string]interface{})
		if !ok {
			continue
		}

		eventType := deriveEventTypeFromSchemaName(schemaName)
		if eventType == "" {
			continue
		}

		schemaJSON, err := json.Marshal(schemaMap)
		if err != nil {
			continue
		}

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			continue
		}

		schemaURI := fmt.Sprintf("asyncapi://schemas/%s", schemaName)
		if err := compiler.AddResource(schemaURI, doc); err != nil {
			continue
		}

		compiled, err := compiler.Compile(schemaURI)
		if err != nil {
			continue
		}

		schemas[eventType] = compiled
		rawSchemas[eventType] = schemaMap
	}

	return &EventValidator{
		schemas:    schemas,
		rawSchemas: rawSchemas,
		compiler:   compiler,
	}, nil
}

// ValidateEvent validates a CloudEvent against its schema.
func (v *EventValidator) ValidateEvent(event CloudEvent) error {
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}

	schema, ok := v.schemas[event.Type]
	if !ok {
		return fmt.Errorf("no schema found for event type: %s", event.Type)
	}

	if event.Data == nil {
		return fmt.Errorf("event data is required")
	}

	// Round-trip through JSON to normalize interface{} types
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	var data interface{}
	if err := json.Unmarshal(dataJSON, &data); err != nil {
		return fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	if err := schema.Validate(data); err != nil {
		return fmt.Errorf("event data validation failed for type %s: %w", event.Type, err)
	}

	return nil
}

// ValidateEventJSON validates a CloudEvent from JSON bytes.
func (v *EventValidator) ValidateEventJSON(eventJSON []byte) error {
	var event CloudEvent
	if err := json.Unmarshal(eventJSON, &event); err != nil {
		return fmt.Errorf("failed to parse CloudEvent: %w", err)
	}
	return v.ValidateEvent(event)
}

// GetSupportedEventTypes returns all event types that have registered schemas.
func (v *EventValidator) GetSupportedEventTypes() []string {
	types := make([]string, 0, len(v.schemas))
	for eventType := range v.schemas {
		types = append(types, eventType)
	}
	return types
}

// HasSchema checks if a schema exists for the given event type.
func (v *EventValidator) HasSchema(eventType string) bool {
	_, ok := v.schemas[eventType]
	return ok
}

// GetSchema returns the raw schema for a given event type.
func (v *EventValidator) GetSchema(eventType string) (interface{}, bool) {
	schema, ok := v.rawSchemas[eventType]
	return schema, ok
}

// deriveEventTypeFromSchemaName converts schema names to event types.
// Examples:
//   - ShipmentCreatedData -> imports.shipment.created
//   - WarehouseCapacityUpdatedData -> imports.warehouse.capacity-updated
func deriveEventTypeFromSchemaName(schemaName string) string {
	name := strings.TrimSuffix(schemaName, "Data")
	name = strings.TrimSuffix(name, "Event")

	mappings := map[string]string{
		// Shipment events
		"ShipmentCreated":       "imports.shipment.created",
		"ShipmentAmended":       "imports.shipment.amended",
		"ShipmentStatusChanged": "imports.shipment.status-changed",
		"ShipmentArrived":       "imports.shipment.arrived",
		"ShipmentDelayed":       "imports.shipment.delayed",
		"ShipmentStored":        "imports.shipment.stored",
		"ShipmentCancelled":     "imports.shipment.cancelled",
		"ShipmentArchived":      "imports.shipment.archived",
		"ShipmentRestored":      "imports.shipment.restored",

		// Warehouse events
		"WarehouseCapacityUpdated": "imports.warehouse.capacity-updated",

		// Notification events
		"NotificationDispatched": "imports.notification.dispatched",
	}

	if eventType, ok := mappings[name]; ok {
		return eventType
	}

	return ""
}

// RegisterSchema adds a custom schema for an event type.
func (v *EventValidator) RegisterSchema(eventType string, schemaJSON []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	schemaURI := fmt.Sprintf("custom://schemas/%s", eventType)
	if err := v.compiler.AddResource(schemaURI, doc); err != nil {
		return fmt.Errorf("failed to add schema resource: %w", err)
	}

	compiled, err := v.compiler.Compile(schemaURI)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	v.schemas[eventType] = compiled

	var rawSchema interface{}
	if err := json.Unmarshal(schemaJSON, &rawSchema); err != nil {
		return fmt.Errorf("failed to parse schema JSON: %w", err)
	}
	v.rawSchemas[eventType] = rawSchema

	return nil
}

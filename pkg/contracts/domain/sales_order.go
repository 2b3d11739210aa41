package domain

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"storepivot/internal/pivot"
)

// SalesOrderStatus is the lifecycle state of a sales order.
type SalesOrderStatus string

const (
	SalesOrderStatusPending   SalesOrderStatus = "pending"
	SalesOrderStatusConfirmed SalesOrderStatus = "confirmed"
	SalesOrderStatusCompleted SalesOrderStatus = "completed"
	SalesOrderStatusCancelled SalesOrderStatus = "cancelled"
	SalesOrderStatusRefunded  SalesOrderStatus = "refunded"
)

// SalesOrderStatuses lists every status in lifecycle order.
var SalesOrderStatuses = []SalesOrderStatus{
	SalesOrderStatusPending,
	SalesOrderStatusConfirmed,
	SalesOrderStatusCompleted,
	SalesOrderStatusCancelled,
	SalesOrderStatusRefunded,
}

// PaymentMethod is how an order was paid.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCredit   PaymentMethod = "credit"
)

// SalesOrder is one order as the analytics view sees it. Money fields are
// decimals so totals stay exact until aggregation.
type SalesOrder struct {
	OrderNumber    string           `json:"orderNumber" validate:"required"`
	CustomerName   string           `json:"customerName" validate:"required"`
	StoreName      string           `json:"storeName" validate:"required"`
	Salesperson    string           `json:"salesperson"`
	Status         SalesOrderStatus `json:"status" validate:"required,oneof=pending confirmed completed cancelled refunded"`
	PaymentMethod  PaymentMethod    `json:"paymentMethod" validate:"omitempty,oneof=cash card transfer credit"`
	OrderDate      time.Time        `json:"orderDate" validate:"required"`
	ItemCount      int              `json:"itemCount" validate:"min=0"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	DiscountAmount decimal.Decimal  `json:"discountAmount"`
	TaxAmount      decimal.Decimal  `json:"taxAmount"`
	TotalAmount    decimal.Decimal  `json:"totalAmount"`
}

// Record field names of a SalesOrder, in export column order.
const (
	FieldOrderNumber    = "orderNumber"
	FieldCustomerName   = "customerName"
	FieldStoreName      = "storeName"
	FieldSalesperson    = "salesperson"
	FieldStatus         = "status"
	FieldPaymentMethod  = "paymentMethod"
	FieldOrderDate      = "orderDate"
	FieldItemCount      = "itemCount"
	FieldSubtotal       = "subtotal"
	FieldDiscountAmount = "discountAmount"
	FieldTaxAmount      = "taxAmount"
	FieldTotalAmount    = "totalAmount"
)

var salesOrderSchema = pivot.MustSchema(
	FieldOrderNumber,
	FieldCustomerName,
	FieldStoreName,
	FieldSalesperson,
	FieldStatus,
	FieldPaymentMethod,
	FieldOrderDate,
	FieldItemCount,
	FieldSubtotal,
	FieldDiscountAmount,
	FieldTaxAmount,
	FieldTotalAmount,
)

// SalesOrderSchema returns the declared fields of a sales order record.
func SalesOrderSchema() *pivot.Schema {
	return salesOrderSchema
}

// ToRecord converts the order to a pivot record. Empty optional strings
// become nil so they group under the empty label.
func (o SalesOrder) ToRecord() pivot.Record {
	var orderDate any
	if !o.OrderDate.IsZero() {
		orderDate = o.OrderDate
	}
	return pivot.Record{
		FieldOrderNumber:    o.OrderNumber,
		FieldCustomerName:   o.CustomerName,
		FieldStoreName:      o.StoreName,
		FieldSalesperson:    optional(o.Salesperson),
		FieldStatus:         string(o.Status),
		FieldPaymentMethod:  optional(string(o.PaymentMethod)),
		FieldOrderDate:      orderDate,
		FieldItemCount:      o.ItemCount,
		FieldSubtotal:       o.Subtotal,
		FieldDiscountAmount: o.DiscountAmount,
		FieldTaxAmount:      o.TaxAmount,
		FieldTotalAmount:    o.TotalAmount,
	}
}

func optional(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// SalesOrderRecords converts orders in order.
func SalesOrderRecords(orders []SalesOrder) []pivot.Record {
	out := make([]pivot.Record, len(orders))
	for i, o := range orders {
		out[i] = o.ToRecord()
	}
	return out
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func orderValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterStructValidation(salesOrderAmounts, SalesOrder{})
	})
	return validate
}

// salesOrderAmounts checks the money fields: nothing negative, and the
// total equals subtotal - discount + tax.
func salesOrderAmounts(sl validator.StructLevel) {
	o := sl.Current().Interface().(SalesOrder)
	for _, f := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"Subtotal", o.Subtotal},
		{"DiscountAmount", o.DiscountAmount},
		{"TaxAmount", o.TaxAmount},
		{"TotalAmount", o.TotalAmount},
	} {
		if f.value.IsNegative() {
			sl.ReportError(f.value, f.name, f.name, "nonnegative", "")
		}
	}
	want := o.Subtotal.Sub(o.DiscountAmount).Add(o.TaxAmount)
	if !o.TotalAmount.Equal(want) {
		sl.ReportError(o.TotalAmount, "TotalAmount", "TotalAmount", "balanced", want.String())
	}
}

// Validate checks required fields, enum values and money arithmetic.
func (o SalesOrder) Validate() error {
	if err := orderValidator().Struct(o); err != nil {
		return fmt.Errorf("invalid sales order %q: %w", o.OrderNumber, err)
	}
	return nil
}

// Valid reports whether s is a known status.
func (s SalesOrderStatus) Valid() bool {
	for _, known := range SalesOrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

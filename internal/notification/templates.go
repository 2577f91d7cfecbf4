package notification

import "html/template"

const layout = `{{define "order"}}<table>
<tr><th>Order</th><td>{{.Order.Reference}}</td></tr>
<tr><th>Customer</th><td>{{.Order.CustomerName}} ({{.Order.Phone}})</td></tr>
<tr><th>Status</th><td>{{.Order.Status}}</td></tr>
<tr><th>Total</th><td>KES {{.Order.Total}}</td></tr>
</table>
<ul>{{range .Order.Items}}<li>{{.Quantity}} x {{.Name}} @ KES {{.UnitPrice}}</li>{{end}}</ul>{{end}}
{{define "payload"}}{{if .Payload}}<pre>{{.Payload}}</pre>{{end}}{{end}}`

var templates = template.Must(template.New("notifications").Parse(layout + `
{{define "order_created"}}<h2>Order {{.Order.Reference}} received</h2>
<p>Thank you {{.Order.CustomerName}}, we have received your order.</p>
{{template "order" .}}
{{if .PaymentError}}<p>We could not start the mobile money payment: {{.PaymentError}}. You can retry from the order page.</p>{{end}}{{end}}

{{define "order_created_operator"}}<h2>New order {{.Order.Reference}}</h2>
<p>Payment method: {{.Order.PaymentMethod}}</p>
{{template "order" .}}
{{if .PaymentError}}<p>Payment request failed: {{.PaymentError}}</p>{{end}}{{end}}

{{define "payment_received"}}<h2>Payment received for order {{.Order.Reference}}</h2>
{{with .Order.Correlation}}{{if .ReceiptNumber}}<p>Receipt: {{.ReceiptNumber}}</p>{{end}}{{if .Amount}}<p>Amount: KES {{.Amount}}</p>{{end}}{{end}}
{{template "order" .}}{{end}}

{{define "status_changed"}}<h2>Order {{.Order.Reference}} updated</h2>
<p>Status changed from {{.From}} to {{.Order.Status}}.</p>
{{template "order" .}}{{end}}

{{define "alert_unmatched"}}<h2>Unmatched payment callback</h2>
<p>{{.Reason}}</p>
{{template "payload" .}}{{end}}

{{define "alert_write_failure"}}<h2>Payment reconciliation failed for order {{.OrderID}}</h2>
<p>{{.Reason}}</p>
{{if .JobID}}<p>Recovery job {{.JobID}} was queued.</p>{{else}}<p>No recovery job could be queued. Manual action is required.</p>{{end}}
{{template "payload" .}}{{end}}

{{define "alert_exhausted"}}<h2>Recovery job {{.JobID}} exhausted</h2>
<p>{{.Reason}}</p>
{{template "payload" .}}{{end}}

{{define "alert_review"}}<h2>Payment callback needs review for order {{.OrderID}}</h2>
<p>{{.Reason}}</p>
{{template "payload" .}}{{end}}`))

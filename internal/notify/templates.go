package notify

import (
	"fmt"

	"ngozi_back_end/internal/models"
)

func getStatusEmailSubject(status models.OrderStatus) string {
	switch status {
	case models.OrderPaid:
		return "✅ Paiement confirmé - Ngozi"
	case models.OrderShipped:
		return "📦 Votre commande a été expédiée - Ngozi"
	case models.OrderDelivered:
		return "🎉 Votre commande a été livrée - Ngozi"
	case models.OrderCancelled:
		return "❌ Commande annulée - Ngozi"
	case models.OrderFailed:
		return "⚠️ Échec du paiement - Ngozi"
	case models.OrderRefunded:
		return "💰 Remboursement effectué - Ngozi"
	default:
		return "📋 Mise à jour de votre commande - Ngozi"
	}
}

func getStatusMessage(status models.OrderStatus) string {
	switch status {
	case models.OrderPaid:
		return "Votre paiement a été confirmé avec succès. Nous préparons votre commande."
	case models.OrderShipped:
		return "Bonne nouvelle ! Votre commande a été expédiée et est en route vers vous."
	case models.OrderDelivered:
		return "Votre commande a été livrée avec succès. Nous espérons que vous en êtes satisfait !"
	case models.OrderCancelled:
		return "Votre commande a été annulée. Si vous avez des questions, n'hésitez pas à nous contacter."
	case models.OrderFailed:
		return "Le paiement de votre commande n'a pas abouti. Vous pouvez réessayer depuis votre panier."
	case models.OrderRefunded:
		return "Votre remboursement a été traité. Les fonds seront crédités sous 5-10 jours ouvrés."
	default:
		return "Le statut de votre commande a été mis à jour."
	}
}

// wrapEmail applique l'habillage commun Ngozi autour d'un corps HTML.
func wrapEmail(title, body string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>%s</title>
</head>
<body style="margin: 0; padding: 0; font-family: Arial, sans-serif; background-color: #f5f0e8;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 24px; border-radius: 10px;">
		<h2 style="color: #6b4423;">%s</h2>
		%s
		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe Ngozi</strong>
		</p>
		<p style="color: #999; font-size: 12px;">
			Cet e-mail a été envoyé automatiquement, merci de ne pas y répondre.
		</p>
	</div>
</body>
</html>`, title, title, body)
}

func generateOrderConfirmationHTML(order models.Order) string {
	itemsHTML := ""
	for _, item := range order.Items {
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td style="padding: 8px; border: 1px solid #ddd;">%s</td>
				<td style="padding: 8px; border: 1px solid #ddd;">%d</td>
				<td style="padding: 8px; border: 1px solid #ddd;">%.2f KES</td>
				<td style="padding: 8px; border: 1px solid #ddd;">%.2f KES</td>
			</tr>`, item.Name, item.Quantity, item.UnitPrice, item.UnitPrice*float64(item.Quantity))
	}

	body := fmt.Sprintf(`
		<p>Bonjour,</p>
		<p>Votre commande <strong>#%s</strong> a bien été enregistrée.</p>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Article</th>
					<th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Quantité</th>
					<th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Prix unitaire</th>
					<th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>%s</tbody>
			<tfoot>
				<tr>
					<td colspan="3" style="padding: 8px; text-align: right; font-weight: bold;">Total:</td>
					<td style="padding: 8px; font-weight: bold;">%.2f KES</td>
				</tr>
			</tfoot>
		</table>`, shortID(order), itemsHTML, order.TotalPrice)

	return wrapEmail("Confirmation de votre commande", body)
}

func generatePaymentConfirmedHTML(order models.Order, payment *models.Payment) string {
	reference := ""
	if payment != nil {
		reference = payment.Reference
	}
	body := fmt.Sprintf(`
		<p>Bonjour,</p>
		<p>Le paiement de votre commande <strong>#%s</strong> a été confirmé.</p>
		<p>Montant : <strong>%.2f KES</strong><br>
		Référence de paiement : <strong>%s</strong></p>
		<p>Nous préparons votre commande et vous tiendrons informé de sa livraison.</p>`,
		shortID(order), order.TotalPrice, reference)

	return wrapEmail("Paiement confirmé", body)
}

func generateStatusEmailHTML(order models.Order) string {
	body := fmt.Sprintf(`
		<p>Bonjour,</p>
		<p>%s</p>
		<p>Commande <strong>#%s</strong> — montant total %.2f KES — statut : <strong>%s</strong></p>`,
		getStatusMessage(order.Status), shortID(order), order.TotalPrice, order.Status)

	return wrapEmail("Mise à jour de votre commande", body)
}

func generateDeliveryEmailHTML(order models.Order, delivery *models.Delivery) string {
	if delivery == nil {
		return generateStatusEmailHTML(order)
	}
	location := delivery.LastLocation
	if location == "" {
		location = "—"
	}
	body := fmt.Sprintf(`
		<p>Bonjour,</p>
		<p>Le statut de votre livraison a été mis à jour : <strong>%s</strong></p>
		<p>Commande <strong>#%s</strong><br>
		Transporteur : %s<br>
		Dernière position : %s<br>
		Code de suivi : <strong>%s</strong></p>`,
		delivery.Status, shortID(order), delivery.Courier, location, delivery.TrackingCode)

	return wrapEmail("Mise à jour de votre livraison", body)
}

func shortID(order models.Order) string {
	id := order.OrderID.String()
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

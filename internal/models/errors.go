package models

import (
	"errors"
	"fmt"
)

// Erreurs métier partagées entre services et handlers.
var (
	ErrNotFound          = errors.New("ressource introuvable")
	ErrAuthRequired      = errors.New("utilisateur authentifié requis")
	ErrEmptyCart         = errors.New("panier vide ou introuvable")
	ErrDuplicateDelivery = errors.New("une livraison existe déjà pour cette commande")
	ErrReferenceMissing  = errors.New("référence de paiement absente du callback")
	ErrPaymentNotFound   = errors.New("aucun paiement ne correspond à cette référence")
)

// ValidationError : entrée malformée ou incomplète, corrigeable par l'appelant.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InvalidTransitionError : arête interdite de la machine à états.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition de statut interdite: %s → %s", e.From, e.To)
}

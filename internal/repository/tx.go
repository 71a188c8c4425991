package repository

import "gorm.io/gorm"

// TxManager выполняет функцию в транзакции базы данных
type TxManager interface {
	WithinTx(fn func(tx *gorm.DB) error) error
}

type txManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) TxManager {
	return &txManager{db: db}
}

// WithinTx откатывает транзакцию, если fn вернула ошибку
func (m *txManager) WithinTx(fn func(tx *gorm.DB) error) error {
	return m.db.Transaction(fn)
}

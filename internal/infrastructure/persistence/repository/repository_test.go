package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/NaN-tic/trytond-project-expenses/internal/application/port"
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/entity"
	"github.com/NaN-tic/trytond-project-expenses/internal/infrastructure/persistence/repository"
	"github.com/NaN-tic/trytond-project-expenses/internal/infrastructure/persistence/sqlite"
	"github.com/NaN-tic/trytond-project-expenses/migrations"
	"github.com/NaN-tic/trytond-project-expenses/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const fixtures = `
INSERT INTO uom_categories (id, name) VALUES (1, 'Units'), (2, 'Time');
INSERT INTO uoms (id, name, symbol, category_id, digits, rounding) VALUES
	(1, 'Unit', 'u', 1, 0, 1),
	(2, 'Hour', 'h', 2, 2, 0.01);
INSERT INTO taxes (id, name, group_id, rate) VALUES
	(1, 'VAT 21%', 10, '0.21'),
	(2, 'VAT 10%', 10, '0.10'),
	(3, 'Exempt', NULL, '0');
INSERT INTO tax_rules (id, name) VALUES (1, 'Intra-community');
INSERT INTO tax_rule_lines (rule_id, sequence, group_id, origin_tax_id, tax_id) VALUES
	(1, 20, 10, NULL, 3),
	(1, 10, 10, 1, NULL);
INSERT INTO product_categories (id, name, account_revenue_id) VALUES (1, 'Services', 700);
INSERT INTO product_category_customer_taxes (category_id, tax_id, sequence) VALUES (1, 2, 1);
INSERT INTO products (id, code, name, default_uom_id, list_price, account_revenue_id,
	accounts_category, taxes_category, category_id) VALUES
	(1, 'TRV', 'Travel', 1, '12.5', 705, 0, 0, 1),
	(2, '', 'Consulting', 2, NULL, NULL, 1, 1, 1);
INSERT INTO product_translations (product_id, lang, name) VALUES (1, 'es', 'Viaje');
INSERT INTO product_customer_taxes (product_id, tax_id, sequence) VALUES (1, 2, 20), (1, 1, 10);
INSERT INTO parties (id, name, lang_code, customer_tax_rule_id) VALUES
	(1, 'Acme', 'es', 1),
	(2, 'Globex', NULL, NULL);
`

type RepositoryTestSuite struct {
	suite.Suite
	db           *database.DB
	tx           *sqlite.DB
	expenses     port.ExpenseRepository
	works        port.WorkRepository
	products     port.ProductRepository
	parties      port.PartyRepository
	invoiceLines port.InvoiceLineRepository
	ctx          context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: database.MemoryPath}, logger)
	s.Require().NoError(err)
	s.Require().NoError(database.NewMigrator(db, logger).RunMigrations(context.Background(), migrations.FS))

	_, err = db.Exec(fixtures)
	s.Require().NoError(err)

	s.db = db
	s.tx = sqlite.NewDB(db.DB, logger)
	s.expenses = repository.NewExpenseRepository(db.DB, logger)
	s.works = repository.NewWorkRepository(db.DB, logger)
	s.products = repository.NewProductRepository(db.DB, logger)
	s.parties = repository.NewPartyRepository(db.DB, logger)
	s.invoiceLines = repository.NewInvoiceLineRepository(db.DB, logger)
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.db.Close()
}

func (s *RepositoryTestSuite) createWork(name string, parentID *int64, sequence int) *entity.Work {
	partyID := int64(1)
	work := &entity.Work{
		Name:      name,
		Type:      entity.WorkTypeTask,
		ParentID:  parentID,
		Sequence:  sequence,
		CompanyID: 1,
		PartyID:   &partyID,
		CreatedAt: time.Now(),
	}
	s.Require().NoError(s.works.Create(s.ctx, work))
	return work
}

func (s *RepositoryTestSuite) createExpense(name string, workID *int64) *entity.Expense {
	unitID := int64(1)
	now := time.Now()
	expense := &entity.Expense{
		Name:      name,
		ProductID: 1,
		Quantity:  2,
		UnitID:    &unitID,
		UnitPrice: decimal.NewNullDecimal(decimal.RequireFromString("12.5")),
		WorkID:    workID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.expenses.Create(s.ctx, expense))
	return expense
}

func (s *RepositoryTestSuite) standaloneLine() *entity.InvoiceLine {
	unitID := int64(1)
	return &entity.InvoiceLine{
		Type:        entity.InvoiceLineTypeLine,
		PartyID:     1,
		ProductID:   1,
		Description: "Taxi",
		Quantity:    2,
		UnitID:      &unitID,
		UnitPrice:   decimal.NewNullDecimal(decimal.RequireFromString("12.5")),
		AccountID:   705,
		TaxIDs:      []int64{3, 1},
	}
}

func (s *RepositoryTestSuite) TestExpense_CreateAndGet() {
	work := s.createWork("Project", nil, 10)
	created := s.createExpense("Taxi", &work.ID)

	got, err := s.expenses.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("Taxi", got.Name)
	s.Equal(int64(1), got.ProductID)
	s.Equal(2.0, got.Quantity)
	s.Require().NotNil(got.UnitID)
	s.Equal(int64(1), *got.UnitID)
	s.True(got.UnitPrice.Valid)
	s.True(got.UnitPrice.Decimal.Equal(decimal.RequireFromString("12.5")))
	s.Require().NotNil(got.WorkID)
	s.Equal(work.ID, *got.WorkID)
	s.Nil(got.InvoiceLineID)
}

func (s *RepositoryTestSuite) TestExpense_GetByIDNotFound() {
	_, err := s.expenses.GetByID(s.ctx, 999)
	s.ErrorIs(err, port.ErrNotFound)
}

func (s *RepositoryTestSuite) TestExpense_GetByIDsKeepsOrder() {
	a := s.createExpense("A", nil)
	b := s.createExpense("B", nil)

	got, err := s.expenses.GetByIDs(s.ctx, []int64{b.ID, a.ID})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("B", got[0].Name)
	s.Equal("A", got[1].Name)

	_, err = s.expenses.GetByIDs(s.ctx, []int64{a.ID, 999})
	s.ErrorIs(err, port.ErrNotFound)
}

func (s *RepositoryTestSuite) TestExpense_GetByWorkID() {
	work := s.createWork("Project", nil, 10)
	other := s.createWork("Other", nil, 10)
	e1 := s.createExpense("E1", &work.ID)
	s.createExpense("E2", &other.ID)
	e3 := s.createExpense("E3", &work.ID)

	got, err := s.expenses.GetByWorkID(s.ctx, work.ID)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(e1.ID, got[0].ID)
	s.Equal(e3.ID, got[1].ID)
}

func (s *RepositoryTestSuite) TestExpense_UpdateKeepsInvoiceLine() {
	expense := s.createExpense("Taxi", nil)

	ctx := port.WithInvoiceContext(s.ctx, port.InvoiceContext{Type: entity.InvoiceTypeOutInvoice, Standalone: true})
	line := s.standaloneLine()
	s.Require().NoError(s.invoiceLines.Create(ctx, line))
	s.Require().NoError(s.expenses.SetInvoiceLine(s.ctx, expense.ID, line.ID))

	expense.Name = "Train"
	expense.InvoiceLineID = nil
	s.Require().NoError(s.expenses.Update(s.ctx, expense))

	got, err := s.expenses.GetByID(s.ctx, expense.ID)
	s.Require().NoError(err)
	s.Equal("Train", got.Name)
	s.Require().NotNil(got.InvoiceLineID)
	s.Equal(line.ID, *got.InvoiceLineID)
}

func (s *RepositoryTestSuite) TestExpense_SetInvoiceLineOnce() {
	expense := s.createExpense("Taxi", nil)

	ctx := port.WithInvoiceContext(s.ctx, port.InvoiceContext{Type: entity.InvoiceTypeOutInvoice, Standalone: true})
	first := s.standaloneLine()
	second := s.standaloneLine()
	s.Require().NoError(s.invoiceLines.Create(ctx, first))
	s.Require().NoError(s.invoiceLines.Create(ctx, second))

	s.Require().NoError(s.expenses.SetInvoiceLine(s.ctx, expense.ID, first.ID))
	s.ErrorIs(s.expenses.SetInvoiceLine(s.ctx, expense.ID, second.ID), port.ErrAlreadyInvoiced)
	s.ErrorIs(s.expenses.SetInvoiceLine(s.ctx, 999, second.ID), port.ErrNotFound)

	got, err := s.expenses.GetByID(s.ctx, expense.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, *got.InvoiceLineID)
}

func (s *RepositoryTestSuite) TestExpense_Delete() {
	expense := s.createExpense("Taxi", nil)

	s.Require().NoError(s.expenses.Delete(s.ctx, expense.ID))
	s.ErrorIs(s.expenses.Delete(s.ctx, expense.ID), port.ErrNotFound)
}

func (s *RepositoryTestSuite) TestExpense_DeletingWorkUnlinksExpense() {
	work := s.createWork("Project", nil, 10)
	expense := s.createExpense("Taxi", &work.ID)

	_, err := s.db.Exec(`DELETE FROM works WHERE id = ?`, work.ID)
	s.Require().NoError(err)

	got, err := s.expenses.GetByID(s.ctx, expense.ID)
	s.Require().NoError(err)
	s.Nil(got.WorkID)
}

func (s *RepositoryTestSuite) TestWork_ChildrenOrderedBySequence() {
	root := s.createWork("Root", nil, 10)
	b := s.createWork("B", &root.ID, 20)
	a := s.createWork("A", &root.ID, 10)
	c := s.createWork("C", &root.ID, 20)

	children, err := s.works.GetChildren(s.ctx, root.ID)
	s.Require().NoError(err)
	s.Require().Len(children, 3)
	s.Equal(a.ID, children[0].ID)
	s.Equal(b.ID, children[1].ID)
	s.Equal(c.ID, children[2].ID)

	got, err := s.works.GetByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(root.ID, *got.ParentID)
	s.Equal(entity.WorkTypeTask, got.Type)
}

func (s *RepositoryTestSuite) TestProduct_LoadsTaxesAndCategory() {
	product, err := s.products.GetByID(s.ctx, 1)
	s.Require().NoError(err)

	s.Equal("[TRV] Viaje", product.RecName("es"))
	s.Equal("[TRV] Travel", product.RecName("en"))
	s.True(product.ListPrice.Valid)
	s.Require().Len(product.CustomerTaxes, 2)
	s.Equal(int64(1), product.CustomerTaxes[0].ID)
	s.Equal(int64(2), product.CustomerTaxes[1].ID)
	s.True(product.CustomerTaxes[0].Rate.Equal(decimal.RequireFromString("0.21")))

	account, err := product.AccountRevenueUsed()
	s.Require().NoError(err)
	s.Equal(int64(705), account)

	consulting, err := s.products.GetByID(s.ctx, 2)
	s.Require().NoError(err)
	s.False(consulting.ListPrice.Valid)
	s.Require().NotNil(consulting.Category)
	account, err = consulting.AccountRevenueUsed()
	s.Require().NoError(err)
	s.Equal(int64(700), account)
	taxes := consulting.CustomerTaxesUsed()
	s.Require().Len(taxes, 1)
	s.Equal(int64(2), taxes[0].ID)

	_, err = s.products.GetByID(s.ctx, 999)
	s.ErrorIs(err, port.ErrNotFound)
}

func (s *RepositoryTestSuite) TestProduct_GetUom() {
	uom, err := s.products.GetUom(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal("Hour", uom.Name)
	s.Equal("h", uom.Symbol)
	s.Equal(int64(2), uom.CategoryID)
	s.Equal(2, uom.Digits)

	_, err = s.products.GetUom(s.ctx, 999)
	s.ErrorIs(err, port.ErrNotFound)
}

func (s *RepositoryTestSuite) TestParty_LoadsTaxRule() {
	party, err := s.parties.GetByID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("es", party.Language("en"))
	s.Require().NotNil(party.CustomerTaxRule)
	s.Require().Len(party.CustomerTaxRule.Lines, 2)
	s.Equal(10, party.CustomerTaxRule.Lines[0].Sequence)
	s.Nil(party.CustomerTaxRule.Lines[0].TaxID)

	other, err := s.parties.GetByID(s.ctx, 2)
	s.Require().NoError(err)
	s.Nil(other.CustomerTaxRule)
	s.Equal("en", other.Language("en"))
}

func (s *RepositoryTestSuite) TestInvoiceLine_StandaloneContext() {
	line := s.standaloneLine()
	s.Error(s.invoiceLines.Create(s.ctx, line), "a line without invoice needs a standalone context")

	ctx := port.WithInvoiceContext(s.ctx, port.InvoiceContext{Type: entity.InvoiceTypeOutInvoice, Standalone: true})
	s.Require().NoError(s.invoiceLines.Create(ctx, line))

	got, err := s.invoiceLines.GetByID(s.ctx, line.ID)
	s.Require().NoError(err)
	s.Nil(got.InvoiceID)
	s.Equal(entity.InvoiceTypeOutInvoice, got.InvoiceType)
	s.Equal([]int64{3, 1}, got.TaxIDs)
	s.True(got.Amount().Equal(decimal.RequireFromString("25")))
}

func (s *RepositoryTestSuite) TestInvoiceLine_RollsBackWithTransaction() {
	ctx := port.WithInvoiceContext(s.ctx, port.InvoiceContext{Type: entity.InvoiceTypeOutInvoice, Standalone: true})
	line := s.standaloneLine()

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.invoiceLines.Create(ctx, line); err != nil {
			return err
		}
		return sql.ErrTxDone
	})
	s.ErrorIs(err, sql.ErrTxDone)

	_, err = s.invoiceLines.GetByID(s.ctx, line.ID)
	s.ErrorIs(err, port.ErrNotFound)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestInvoiceLine_RequiresAccount(t *testing.T) {
	logger := zap.NewNop()
	db, err := database.New(database.Config{Path: database.MemoryPath}, logger)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(context.Background(), migrations.FS))

	repo := repository.NewInvoiceLineRepository(db.DB, logger)
	ctx := port.WithInvoiceContext(context.Background(), port.InvoiceContext{Type: entity.InvoiceTypeOutInvoice, Standalone: true})

	err = repo.Create(ctx, &entity.InvoiceLine{
		Type:      entity.InvoiceLineTypeLine,
		PartyID:   1,
		UnitPrice: decimal.NewNullDecimal(decimal.NewFromInt(1)),
	})
	assert.ErrorContains(t, err, "account is required")
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagepass/pagepass/internal/models"
	"github.com/pagepass/pagepass/pkg/token"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*models.Grant
	fail bool
}

func (n *recordingNotifier) Send(_ context.Context, grant *models.Grant) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.sent = append(n.sent, grant)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func newIssuer(t *testing.T, f *fixture, notifier Notifier, opts ...IssuerOption) *IssuerService {
	t.Helper()
	opts = append([]IssuerOption{WithSynchronousDispatch()}, opts...)
	issuer, err := NewIssuerService(f.orders, f.catalog, f.store, notifier, opts...)
	require.NoError(t, err)
	return issuer
}

func TestIssueForOrderGrantsOnlyAccessControlledItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page := f.mustCreatePage(t, "book-r1")
	f.mustCreateProduct(t, "P1", true, &page.ID)
	f.mustCreateProduct(t, "P2", false, nil)
	f.mustRecordOrder(t, "O1", "P1", "P2")

	notifier := &recordingNotifier{}
	issuer := newIssuer(t, f, notifier)

	grants, err := issuer.IssueForOrder(ctx, "O1")
	require.NoError(t, err)
	require.Len(t, grants, 1)

	grant := grants[0]
	require.GreaterOrEqual(t, len(grant.Token), 32)
	require.Equal(t, page.ID, grant.PageID)
	require.Equal(t, "Ada", grant.FirstName)
	require.Equal(t, "ada@example.com", grant.Email)

	require.Equal(t, 1, notifier.count())

	count, err := f.store.CountByPage(ctx, page.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestIssueForOrderIsIdempotentAcrossLifecycleEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page := f.mustCreatePage(t, "book-idem")
	f.mustCreateProduct(t, "P1", true, &page.ID)
	f.mustRecordOrder(t, "O1", "P1")

	issuer := newIssuer(t, f, nil)

	// payment_completed then order_completed for the same order.
	first, err := issuer.IssueForOrder(ctx, "O1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := issuer.IssueForOrder(ctx, "O1")
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, first[0].Token, second[0].Token)

	all, err := f.store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestIssueForOrderRetriesOnTokenCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page := f.mustCreatePage(t, "book-collide")
	f.mustCreateProduct(t, "P1", true, &page.ID)
	f.mustRecordOrder(t, "O1", "P1")

	// Occupy a token so the first k generator outputs collide.
	colliding := "collision-token-aaaaaaaaaaaaaaaaaa"
	require.NoError(t, f.store.Put(ctx, newStoredGrant(colliding, "other-order", "other-product", page.ID)))

	calls := 0
	source := func() (string, error) {
		calls++
		if calls <= 3 {
			return colliding, nil
		}
		return token.Generate()
	}

	issuer := newIssuer(t, f, nil, WithTokenSource(source))

	grants, err := issuer.IssueForOrder(ctx, "O1")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.NotEqual(t, colliding, grants[0].Token)
	require.Equal(t, 4, calls)
}

func TestIssueForOrderExhaustsCollisionRetriesWithoutAbortingSiblings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pageA := f.mustCreatePage(t, "book-a")
	pageB := f.mustCreatePage(t, "book-b")
	f.mustCreateProduct(t, "PA", true, &pageA.ID)
	f.mustCreateProduct(t, "PB", true, &pageB.ID)
	f.mustRecordOrder(t, "O1", "PA", "PB")

	colliding := "stuck-token-aaaaaaaaaaaaaaaaaaaaaa"
	require.NoError(t, f.store.Put(ctx, newStoredGrant(colliding, "other-order", "other-product", pageA.ID)))

	// The first item's generator never escapes the collision; the second
	// item's tokens are fresh.
	calls := 0
	source := func() (string, error) {
		calls++
		if calls <= 5 {
			return colliding, nil
		}
		return token.Generate()
	}

	issuer := newIssuer(t, f, nil, WithTokenSource(source))

	grants, err := issuer.IssueForOrder(ctx, "O1")
	require.NoError(t, err)
	require.Len(t, grants, 1, "sibling item must still be granted")
	require.NotEqual(t, colliding, grants[0].Token)
}

func TestIssueForOrderSkipsUnboundAccessControlledProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mustCreateProduct(t, "P-unbound", true, nil)
	f.mustRecordOrder(t, "O1", "P-unbound")

	issuer := newIssuer(t, f, nil)

	grants, err := issuer.IssueForOrder(ctx, "O1")
	require.NoError(t, err)
	require.Empty(t, grants)
}

func TestIssueForOrderIsolatesRandomnessFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pageA := f.mustCreatePage(t, "book-ra")
	pageB := f.mustCreatePage(t, "book-rb")
	f.mustCreateProduct(t, "PA", true, &pageA.ID)
	f.mustCreateProduct(t, "PB", true, &pageB.ID)
	f.mustRecordOrder(t, "O1", "PA", "PB")

	calls := 0
	source := func() (string, error) {
		calls++
		if calls == 1 {
			return "", fmt.Errorf("%w: entropy pool empty", token.ErrRandomnessUnavailable)
		}
		return token.Generate()
	}

	issuer := newIssuer(t, f, nil, WithTokenSource(source))

	grants, err := issuer.IssueForOrder(ctx, "O1")
	require.NoError(t, err)
	require.Len(t, grants, 1, "the failing item must not abort its sibling")
}

func TestIssueForOrderSurvivesNotifierFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page := f.mustCreatePage(t, "book-mail")
	f.mustCreateProduct(t, "P1", true, &page.ID)
	f.mustRecordOrder(t, "O1", "P1")

	issuer := newIssuer(t, f, &recordingNotifier{fail: true})

	grants, err := issuer.IssueForOrder(ctx, "O1")
	require.NoError(t, err)
	require.Len(t, grants, 1)

	// The grant is durable despite the failed dispatch.
	found, err := f.store.GetByToken(ctx, grants[0].Token)
	require.NoError(t, err)
	require.Equal(t, grants[0].ID, found.ID)
}

func TestIssueForOrderUnknownOrder(t *testing.T) {
	f := newFixture(t)

	issuer := newIssuer(t, f, nil)
	_, err := issuer.IssueForOrder(context.Background(), "missing")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

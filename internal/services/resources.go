package services

import (
	"context"

	"github.com/codingspiderfox/ledgersync/backend/internal/criteria"
	"github.com/codingspiderfox/ledgersync/backend/internal/models"
)

var ProjectSchema = criteria.NewSchema("project").
	Long("id", "id").
	String("name", "name").
	String("key", "project_key").
	Time("createTimestamp", "create_timestamp")

var ProjectSettingsSchema = criteria.NewSchema("project-settings").
	Long("id", "id").
	Bool("mustProvideBillCopyByDefault", "must_provide_bill_copy_by_default").
	Ref("projectId", "project_id", criteria.KindLong)

var ProjectMemberSchema = criteria.NewSchema("project-member").
	Long("id", "id").
	EnumSet("additionalProjectPermissions", "additional_project_permissions", models.NormalizeProjectPermissions).
	EnumSet("roleInProject", "role_in_project", models.NormalizeProjectMemberRoles).
	Time("addedTimestamp", "added_timestamp").
	String("userId", "user_id").
	Ref("projectId", "project_id", criteria.KindLong)

var ProjectMemberPermissionSchema = criteria.NewSchema("project-member-permission").
	Long("id", "id").
	Time("createdTimestamp", "created_timestamp").
	Enum("projectMemberPermission", "project_member_permission", models.ProjectPermissionValues...)

var ProjectMemberRoleSchema = criteria.NewSchema("project-member-role").
	Long("id", "id").
	Time("createdTimestamp", "created_timestamp").
	Enum("projectMemberRole", "project_member_role", models.ProjectMemberRoleValues...)

var ProjectMemberPermissionAssignmentSchema = criteria.NewSchema("project-member-permission-assignment").
	Long("id", "id").
	Time("assignmentTimestamp", "assignment_timestamp").
	Ref("projectMemberId", "project_member_id", criteria.KindLong).
	JoinRef("projectMemberPermissionId", criteria.Join{
		Table:        models.PermissionAssignmentJoinTable,
		OwnerColumn:  "assignment_id",
		TargetColumn: "permission_id",
	}, criteria.KindLong)

var ProjectMemberRoleAssignmentSchema = criteria.NewSchema("project-member-role-assignment").
	Long("id", "id").
	Time("assignmentTimestamp", "assignment_timestamp").
	Ref("projectMemberId", "project_member_id", criteria.KindLong).
	JoinRef("projectMemberRoleId", criteria.Join{
		Table:        models.RoleAssignmentJoinTable,
		OwnerColumn:  "assignment_id",
		TargetColumn: "role_id",
	}, criteria.KindLong)

var FinanceAccountSchema = criteria.NewSchema("finance-account").
	String("id", "id").
	String("title", "title").
	Double("currentBalance", "current_balance").
	String("ownerId", "owner_id")

var FinanceTransactionsSchema = criteria.NewSchema("finance-transactions").
	String("id", "id").
	Time("executionTimestamp", "execution_timestamp").
	Double("amountAddedToDestinationAccount", "amount_added_to_destination_account").
	String("comment", "comment").
	Ref("destinationAccountId", "destination_account_id", criteria.KindString).
	Ref("referenceAccountId", "reference_account_id", criteria.KindString)

var ProductSchema = criteria.NewSchema("product").
	Long("id", "id").
	String("title", "title").
	String("scannerId", "scanner_id").
	Duration("usualDurationFromBuyTillExpire", "usual_duration_from_buy_till_expire").
	Bool("expireMeansBad", "expire_means_bad").
	Double("defaultPrice", "default_price")

var StockSchema = criteria.NewSchema("stock").
	Long("id", "id").
	Time("addedTimestamp", "added_timestamp").
	String("storageLocation", "storage_location").
	Time("calculatedExpiryTimestamp", "calculated_expiry_timestamp").
	Time("manualSetExpiryTimestamp", "manual_set_expiry_timestamp").
	Ref("productId", "product_id", criteria.KindLong)

var BillSchema = criteria.NewSchema("bill").
	Long("id", "id").
	String("title", "title").
	Time("closedTimestamp", "closed_timestamp").
	Double("finalAmount", "final_amount").
	Ref("projectId", "project_id", criteria.KindLong)

var BillPositionSchema = criteria.NewSchema("bill-position").
	Long("id", "id").
	String("title", "title").
	Double("cost", "cost").
	Long("order", "position_order").
	Ref("billId", "bill_id", criteria.KindLong)

// Resource is the type-independent view of a synchronizer.
type Resource interface {
	Name() string
	Path() string
	Schema() *criteria.Schema
	Count(ctx context.Context, c criteria.Criteria) (int64, error)
	Reindex(ctx context.Context, batchSize int) (int, error)
}

// Resources holds one synchronizer per entity.
type Resources struct {
	Projects                           *Synchronizer[models.Project, *models.Project, int64]
	ProjectSettings                    *Synchronizer[models.ProjectSettings, *models.ProjectSettings, int64]
	ProjectMembers                     *Synchronizer[models.ProjectMember, *models.ProjectMember, int64]
	ProjectMemberPermissions           *Synchronizer[models.ProjectMemberPermission, *models.ProjectMemberPermission, int64]
	ProjectMemberRoles                 *Synchronizer[models.ProjectMemberRole, *models.ProjectMemberRole, int64]
	ProjectMemberPermissionAssignments *Synchronizer[models.ProjectMemberPermissionAssignment, *models.ProjectMemberPermissionAssignment, int64]
	ProjectMemberRoleAssignments       *Synchronizer[models.ProjectMemberRoleAssignment, *models.ProjectMemberRoleAssignment, int64]
	FinanceAccounts                    *Synchronizer[models.FinanceAccount, *models.FinanceAccount, string]
	FinanceTransactions                *Synchronizer[models.FinanceTransactions, *models.FinanceTransactions, string]
	Products                           *Synchronizer[models.Product, *models.Product, int64]
	Stocks                             *Synchronizer[models.Stock, *models.Stock, int64]
	Bills                              *Synchronizer[models.Bill, *models.Bill, int64]
	BillPositions                      *Synchronizer[models.BillPosition, *models.BillPosition, int64]
}

func NewResources(deps SyncDeps) *Resources {
	return &Resources{
		Projects:                           NewSynchronizer[models.Project](deps, "projects", ProjectSchema, ParseInt64ID),
		ProjectSettings:                    NewSynchronizer[models.ProjectSettings](deps, "project-settings", ProjectSettingsSchema, ParseInt64ID),
		ProjectMembers:                     NewSynchronizer[models.ProjectMember](deps, "project-members", ProjectMemberSchema, ParseInt64ID),
		ProjectMemberPermissions:           NewSynchronizer[models.ProjectMemberPermission](deps, "project-member-permissions", ProjectMemberPermissionSchema, ParseInt64ID),
		ProjectMemberRoles:                 NewSynchronizer[models.ProjectMemberRole](deps, "project-member-roles", ProjectMemberRoleSchema, ParseInt64ID),
		ProjectMemberPermissionAssignments: NewSynchronizer[models.ProjectMemberPermissionAssignment](deps, "project-member-permission-assignments", ProjectMemberPermissionAssignmentSchema, ParseInt64ID),
		ProjectMemberRoleAssignments:       NewSynchronizer[models.ProjectMemberRoleAssignment](deps, "project-member-role-assignments", ProjectMemberRoleAssignmentSchema, ParseInt64ID),
		FinanceAccounts:                    NewSynchronizer[models.FinanceAccount](deps, "finance-accounts", FinanceAccountSchema, ParseStringID),
		FinanceTransactions:                NewSynchronizer[models.FinanceTransactions](deps, "finance-transactions", FinanceTransactionsSchema, ParseStringID),
		Products:                           NewSynchronizer[models.Product](deps, "products", ProductSchema, ParseInt64ID),
		Stocks:                             NewSynchronizer[models.Stock](deps, "stocks", StockSchema, ParseInt64ID),
		Bills:                              NewSynchronizer[models.Bill](deps, "bills", BillSchema, ParseInt64ID),
		BillPositions:                      NewSynchronizer[models.BillPosition](deps, "bill-positions", BillPositionSchema, ParseInt64ID),
	}
}

// All lists the resources in dependency order.
func (r *Resources) All() []Resource {
	return []Resource{
		r.Projects,
		r.ProjectSettings,
		r.ProjectMembers,
		r.ProjectMemberPermissions,
		r.ProjectMemberRoles,
		r.ProjectMemberPermissionAssignments,
		r.ProjectMemberRoleAssignments,
		r.FinanceAccounts,
		r.FinanceTransactions,
		r.Products,
		r.Stocks,
		r.Bills,
		r.BillPositions,
	}
}

// ReindexAll rebuilds every mirror index from the primary store.
func (r *Resources) ReindexAll(ctx context.Context, batchSize int) (map[string]int, error) {
	counts := make(map[string]int)
	for _, res := range r.All() {
		n, err := res.Reindex(ctx, batchSize)
		counts[res.Name()] = n
		if err != nil {
			return counts, err
		}
	}
	return counts, nil
}

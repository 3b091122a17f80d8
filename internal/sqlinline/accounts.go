package sqlinline

const QSelectAccount = `--sql e58f5c90-334a-4f85-9f8c-51965e6ea937
select id, tier, credits, created_at, updated_at
from accounts
where id = $1::text;
`

const QUpsertAccount = `--sql f143424a-984d-42f0-a39c-f280d5ddb031
insert into accounts (id, tier, credits, created_at, updated_at)
values ($1::text, $2::text, $3::int, now(), now())
on conflict (id) do update set
    tier = excluded.tier,
    credits = excluded.credits,
    updated_at = now();
`

// QApplyLedgerEntry moves the balance by -amount and records the entry in
// one statement. No row comes back when the debit would overdraw.
const QApplyLedgerEntry = `--sql 8b7af1c0-9321-483d-9235-5959e42e9b6f
with moved as (
    update accounts
    set credits = credits - $4::int,
        updated_at = now()
    where id = $2::text
      and credits - $4::int >= 0
    returning id, credits
)
insert into ledger_entries (id, account_id, project_id, amount, reason, balance_after, created_at)
select $1::uuid, moved.id, nullif($3::text, ''), $4::int, $5::text, moved.credits, $6::timestamptz
from moved
returning balance_after;
`

const QListLedgerEntries = `--sql 37c7e897-45e0-4895-a72e-721375871bb5
select id::text, account_id, coalesce(project_id, ''), amount, reason, balance_after, created_at
from ledger_entries
where account_id = $1::text
order by created_at desc
limit $2::int;
`

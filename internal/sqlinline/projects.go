package sqlinline

// Projects are stored as a JSON document next to the columns used for
// filtering.
const QUpsertProject = `--sql 1484a3c0-d7e8-42f5-941a-a910a3bd8771
insert into projects (id, account_id, status, payload, created_at, updated_at)
values ($1::uuid, $2::text, $3::text, $4::jsonb, $5::timestamptz, $6::timestamptz)
on conflict (id) do update set
    status = excluded.status,
    payload = excluded.payload,
    updated_at = excluded.updated_at;
`

const QListProjectsByAccount = `--sql 28cb0efe-5c44-4409-ba38-7aef615db7ce
select payload
from projects
where account_id = $1::text
order by created_at desc;
`

const QDeleteProject = `--sql 12a4fcca-74d4-4674-b212-51e23ed0b3a2
delete from projects
where id = $1::uuid;
`
